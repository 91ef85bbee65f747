// Command dupctl is the operational entrypoint for the published-collab
// duplicator: one MCP tool wrapping Duplicator.Run, for exercising the
// orchestrator outside of the excluded HTTP surface. It performs no
// authentication — that is explicitly left to the excluded middleware.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kasuganosora/collab-duplicator/pkg/collab"
	"github.com/kasuganosora/collab-duplicator/pkg/collabstore"
	"github.com/kasuganosora/collab-duplicator/pkg/dupconfig"
	"github.com/kasuganosora/collab-duplicator/pkg/duplicator"
	"github.com/kasuganosora/collab-duplicator/pkg/groupmanager"
	"github.com/kasuganosora/collab-duplicator/pkg/logging"
	"github.com/kasuganosora/collab-duplicator/pkg/publishstore"
)

func main() {
	cfg := dupconfig.LoadOrDefault()
	logger := logging.NewStdLogger()

	db, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		log.Fatalf("dupctl: open database: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Postgres.ConnMaxLifetime)

	groups, err := groupmanager.New(cfg.GroupCache)
	if err != nil {
		log.Fatalf("dupctl: start group manager: %v", err)
	}
	defer groups.Close()

	dup := duplicator.New(publishstore.New(db), collabstore.New(db), groups, logger)

	tool := mcp.NewTool("duplicate_published_collab",
		mcp.WithDescription("Duplicate a published collab document or database, and everything it transitively references, into a destination workspace."),
		mcp.WithNumber("dest_uid", mcp.Description("Id of the user the duplicate is created by"), mcp.Required()),
		mcp.WithString("publish_view_id", mcp.Description("View id of the published collab to duplicate"), mcp.Required()),
		mcp.WithString("dest_workspace_id", mcp.Description("Workspace id the duplicate is inserted into"), mcp.Required()),
		mcp.WithString("dest_view_id", mcp.Description("View id the new root view is parented under"), mcp.Required()),
		mcp.WithString("collab_type", mcp.Description("\"document\" or \"database\""), mcp.Required()),
	)

	mcpSrv := mcpserver.NewMCPServer("dupctl", "1.0.0", mcpserver.WithToolCapabilities(true), mcpserver.WithRecovery())
	mcpSrv.AddTool(tool, handleDuplicate(db, dup, logger))

	if err := mcpserver.ServeStdio(mcpSrv); err != nil {
		log.Fatalf("dupctl: serve: %v", err)
	}
}

func handleDuplicate(db *sql.DB, dup *duplicator.Duplicator, logger logging.Logger) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		destUID := int64(request.GetFloat("dest_uid", 0))
		publishViewID := request.GetString("publish_view_id", "")
		destWorkspaceID := request.GetString("dest_workspace_id", "")
		destViewID := request.GetString("dest_view_id", "")
		collabTypeArg := request.GetString("collab_type", "")

		if publishViewID == "" || destWorkspaceID == "" || destViewID == "" {
			return mcp.NewToolResultError("publish_view_id, dest_workspace_id and dest_view_id are required"), nil
		}

		var collabType collab.Type
		switch collabTypeArg {
		case "document":
			collabType = collab.TypeDocument
		case "database":
			collabType = collab.TypeDatabase
		default:
			return mcp.NewToolResultError(fmt.Sprintf("collab_type must be \"document\" or \"database\", got %q", collabTypeArg)), nil
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("begin transaction: %v", err)), nil
		}

		newRootID, err := dup.Run(ctx, tx, destUID, publishViewID, destWorkspaceID, destViewID, collabType, time.Now().Unix())
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Printf("[ERROR] rollback after failed duplication: %v", rbErr)
			}
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := tx.Commit(); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("commit: %v", err)), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf(`{"new_root_view_id":%q}`, newRootID)), nil
	}
}
