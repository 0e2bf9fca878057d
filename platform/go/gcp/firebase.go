package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// FirebaseConfig locates the Firebase project. Both fields are optional on GCP runtimes
// where application default credentials and the project are discovered automatically.
type FirebaseConfig struct {
	// CredentialsFile is a service account JSON path (FIREBASE_CONFIG).
	CredentialsFile string
	// ProjectID overrides the discovered project (GCLOUD_PROJECT).
	ProjectID string
}

// GetApp creates a Firebase App instance.
func GetApp(ctx context.Context, cfg FirebaseConfig) (*firebase.App, error) {
	var appConfig *firebase.Config
	if id := strings.TrimSpace(cfg.ProjectID); id != "" {
		appConfig = &firebase.Config{ProjectID: id}
	}

	var opts []option.ClientOption
	if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
		opts = append(opts, option.WithCredentialsFile(path))
	}

	app, err := firebase.NewApp(ctx, appConfig, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app [%w]", err)
	}
	return app, nil
}

// InitFirestore returns a Firestore client for the configured project. Callers close it on shutdown.
func InitFirestore(ctx context.Context, cfg FirebaseConfig) (*firestore.Client, error) {
	app, err := GetApp(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing firestore [%w]", err)
	}
	return client, nil
}
