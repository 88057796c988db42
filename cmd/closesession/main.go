// Command closesession force-closes a server's cash session from the back
// office, for drawers left open on a terminal that is no longer in use.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cafepos/terminal/internal/gateway"
	"github.com/cafepos/terminal/internal/logging"
	"github.com/cafepos/terminal/internal/model"
	"github.com/cafepos/terminal/internal/money"
	"github.com/cafepos/terminal/internal/rpc"
)

func main() {
	// CLI flags
	sessionFlag := flag.String("session", "", "Session ID to close")
	operatorFlag := flag.String("operator", "", "Close the open session of this operator ID instead")
	schema := flag.String("schema", "public", "Schema holding the procedures")
	timeout := flag.Duration("timeout", 15*time.Second, "Timeout for the whole operation")
	flag.Parse()

	lg, closeLog, err := logging.New("", false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer closeLog()

	// Load database URL from environment
	dbURL := os.Getenv("CAFEPOS_BACKEND_DATABASE_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		lg.Fatal("DATABASE_URL is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := rpc.NewPool(ctx, dbURL)
	if err != nil {
		lg.Fatal("Unable to connect to database", zap.Error(err))
	}
	defer pool.Close()

	gw := gateway.New(rpc.NewPostgresCaller(pool, *schema, lg), lg)

	sessionID, err := resolveSession(ctx, gw, *sessionFlag, *operatorFlag)
	if err != nil {
		lg.Fatal("Resolve session", zap.Error(err))
	}

	if err := closeSession(ctx, gw, sessionID, os.Stdout); err != nil {
		lg.Fatal("Close session", zap.Stringer("session_id", sessionID), zap.Error(err))
	}
}

// SessionCloser defines the gateway method that closes a session.
type SessionCloser interface {
	CloseSession(ctx context.Context, sessionID uuid.UUID) (*model.Session, error)
}

// closeSession closes sessionID and prints the result to out. The backend
// may answer without the final row; the session is closed all the same.
func closeSession(ctx context.Context, gw SessionCloser, sessionID uuid.UUID, out io.Writer) error {
	closed, err := gw.CloseSession(ctx, sessionID)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Session closed successfully!")
	if closed == nil {
		fmt.Fprintf(out, "  Session ID: %s\n", sessionID)
		return nil
	}
	fmt.Fprintf(out, "  Session ID: %s\n", closed.ID)
	fmt.Fprintf(out, "  Operator:   %s\n", closed.OperatorID)
	fmt.Fprintf(out, "  Collected:  %s\n", money.Format(closed.CollectedTotal))
	return nil
}

// SessionFinder defines the gateway methods the command needs.
type SessionFinder interface {
	OpenSessionFor(ctx context.Context, operatorID uuid.UUID) (*model.Session, error)
}

// resolveSession picks the session from the flags. Exactly one of
// sessionFlag and operatorFlag must be set.
func resolveSession(ctx context.Context, gw SessionFinder, sessionFlag, operatorFlag string) (uuid.UUID, error) {
	switch {
	case sessionFlag != "" && operatorFlag != "":
		return uuid.Nil, fmt.Errorf("use either -session or -operator")
	case sessionFlag != "":
		id, err := uuid.Parse(sessionFlag)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid session id: %w", err)
		}
		return id, nil
	case operatorFlag != "":
		opID, err := uuid.Parse(operatorFlag)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid operator id: %w", err)
		}
		sess, err := gw.OpenSessionFor(ctx, opID)
		if err != nil {
			return uuid.Nil, err
		}
		if sess == nil {
			return uuid.Nil, fmt.Errorf("operator %s has no open session", opID)
		}
		return sess.ID, nil
	}
	return uuid.Nil, fmt.Errorf("-session or -operator is required")
}
