package cmd

import (
	"fmt"

	"github.com/corey/weft/internal/adapters/socket"
)

// watchClient returns a client for the `weft watch` serving this project, or
// nil when none is running. A watch serving a different session is an error:
// it holds the database lock, so the session cannot be opened directly either.
func watchClient(root string) (*socket.Client, error) {
	client := socket.NewClient(socket.SocketPath(root))
	if !client.Ping() {
		return nil, nil
	}
	health, err := client.Health()
	if err != nil {
		return nil, fmt.Errorf("watch process not answering: %w", err)
	}
	if health.SessionID != sessionFlag {
		return nil, fmt.Errorf("`weft watch` is serving session %q; stop it or pass --session %s",
			health.SessionID, health.SessionID)
	}
	return client, nil
}
