package mcp

import (
	"database/sql"
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	omo "github.com/unowned-ai/omo/pkg"
	pkgdb "github.com/unowned-ai/omo/pkg/db"
	"github.com/unowned-ai/omo/pkg/utils"
)

type OmoMCPServer struct {
	mcpServer *server.MCPServer
	db        *sql.DB
	logger    *zap.Logger
	DbPath    string
}

// NewOmoMCPServer spins up an MCP server backed by the SQLite database at dbPath.
// An empty dbPath selects the per-OS default location.
func NewOmoMCPServer(dbPath string, walMode bool, syncMode string, logger *zap.Logger) (*OmoMCPServer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dbPath != pkgdb.MemoryDSN {
		resolved, err := utils.ResolveAndEnsureDBPath(dbPath)
		if err != nil {
			return nil, err
		}
		dbPath = resolved
	}

	s := server.NewMCPServer(
		"Omo MCP Server",
		omo.Version,
		server.WithLogging(),
		server.WithRecovery(),
	)

	dbConn, err := pkgdb.OpenDBConnection(dbPath, walMode, syncMode)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if err := pkgdb.UpgradeDB(dbConn, dbPath, pkgdb.TargetSchemaVersion, logger); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("failed to initialize/upgrade database schema for '%s': %w", dbPath, err)
	}

	return &OmoMCPServer{
		mcpServer: s,
		db:        dbConn,
		logger:    logger.Named("mcp"),
		DbPath:    dbPath,
	}, nil
}

// RegisterTools adds every journal tool to the server and returns their names.
func (s *OmoMCPServer) RegisterTools() []string {
	names := RegisterAll(s.mcpServer, s.db)
	s.logger.Debug("registered tools", zap.Strings("tools", names))
	return names
}

// Start runs the stdio event loop. Make sure to register tools beforehand.
func (s *OmoMCPServer) Start() error {
	s.logger.Info("listening on stdio", zap.String("db", s.DbPath))
	return server.ServeStdio(s.mcpServer)
}

// DB returns the underlying *sql.DB.
func (s *OmoMCPServer) DB() *sql.DB {
	return s.db
}

// MCPRawServer exposes the raw mcp-go server.
func (s *OmoMCPServer) MCPRawServer() *server.MCPServer {
	return s.mcpServer
}

// Close cleans up allocated resources.
func (s *OmoMCPServer) Close() error {
	if s.db == nil {
		return nil
	}
	// TRUNCATE mode waits for transactions and writes the WAL back to the main DB.
	if _, err := s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		s.logger.Warn("WAL checkpoint failed during close", zap.Error(err))
	}
	return s.db.Close()
}
