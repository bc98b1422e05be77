package config

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/joho/godotenv"
	"google.golang.org/api/option"
)

var (
	fsClient *firestore.Client
)

func GetFirestore() *firestore.Client {
	return fsClient
}

func init() {
	// Load env from .env
	godotenv.Load()
	// IMPORTANT (Cloud Run):
	// Do NOT block startup in init() waiting for Firestore.
	// Cloud Run requires the container to start listening on $PORT quickly.
}

// ConnectFirestoreWithRetry connects and sets the process-wide client.
// Call this from main() AFTER the HTTP server is listening. The client is
// constructed exactly once; nothing else in the codebase is allowed to
// reinitialize it.
func ConnectFirestoreWithRetry() {
	projectID := strings.TrimSpace(os.Getenv("GCP_PROJECT_ID"))
	credsPath := strings.TrimSpace(os.Getenv("FIREBASE_CREDENTIALS_PATH"))

	var opts []option.ClientOption
	if credsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credsPath))
	}

	var attempt int
	for {
		attempt++
		client, err := firestore.NewClient(context.Background(), projectID, opts...)
		if err == nil {
			fsClient = client
			log.Printf("connected to firestore (attempt=%d)", attempt)
			return
		}

		sleep := time.Second * time.Duration(1<<minInt(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect firestore (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

// StoreCallTimeout bounds every single store call issued by the services.
// Env override: STORE_CALL_TIMEOUT_SECONDS (default 10).
func StoreCallTimeout() time.Duration {
	return time.Duration(intFromEnv("STORE_CALL_TIMEOUT_SECONDS", 10)) * time.Second
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
