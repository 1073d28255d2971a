package firestore

import (
	"context"
	"os"
	"testing"

	"github.com/Rrens/social-content-generator/internal/config"
	"github.com/Rrens/social-content-generator/internal/repository/repotest"
	"github.com/stretchr/testify/require"
)

// Runs against the emulator: FIRESTORE_EMULATOR_HOST=localhost:8080
func TestContract(t *testing.T) {
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		t.Skip("FIRESTORE_EMULATOR_HOST not set")
	}

	store, err := NewStore(context.Background(), config.FirestoreConfig{ProjectID: "socialgen-test"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	repotest.Run(t, store.Sessions(), store.Messages())
}
