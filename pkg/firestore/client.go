package firestore

import (
	"context"
	"fmt"
	"os"

	gcfirestore "cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"github.com/noah-isme/sma-risk-api/pkg/config"
)

// CredentialsJSONEnv holds inline service account JSON, used when no credentials file is set.
const CredentialsJSONEnv = "FIREBASE_CONFIG"

// NewClient returns a Firestore client for the configured project. Without explicit
// credentials the client falls back to application default credentials.
func NewClient(ctx context.Context, cfg config.FirestoreConfig) (*gcfirestore.Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore project id is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	} else if raw := os.Getenv(CredentialsJSONEnv); raw != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(raw)))
	}

	client, err := gcfirestore.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return client, nil
}
