package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/lumikids/radiogen-backend/internal/platform/logger"
)

var (
	// ErrObjectNotExist is returned by Get when no object lives at the key.
	ErrObjectNotExist = errors.New("object does not exist")
	// ErrObjectExists is returned by Put with IfAbsent when the key is taken.
	ErrObjectExists = errors.New("object already exists")
)

type PutOptions struct {
	ContentType  string
	CacheControl string
	// IfAbsent makes the write conditional on the key not existing yet.
	IfAbsent bool
}

// ObjectStore is the durable-storage surface for tracks, manifests and lock
// records. Delete is idempotent; Get reports a missing key as ErrObjectNotExist.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
	PublicURL(key string) string
}

type objectStore struct {
	log          *logger.Logger
	client       *storage.Client
	bucketName   string
	cdnDomain    string
	emulatorHost string
}

func NewObjectStore(log *logger.Logger) (ObjectStore, error) {
	serviceLog := log.With("service", "ObjectStore")

	bucketName := strings.TrimSpace(os.Getenv("PROGRAM_GCS_BUCKET_NAME"))
	if bucketName == "" {
		return nil, fmt.Errorf("missing env var PROGRAM_GCS_BUCKET_NAME")
	}
	cdnDomain := strings.TrimSpace(os.Getenv("PROGRAM_CDN_DOMAIN"))
	emulatorHost := strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/")

	ctx := context.Background()
	var client *storage.Client
	var err error
	if emulatorHost != "" {
		// fake-gcs-server for local development; the client honors
		// STORAGE_EMULATOR_HOST natively.
		client, err = storage.NewClient(ctx, option.WithoutAuthentication())
	} else {
		opts := ClientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		client, err = storage.NewClient(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info("Object storage initialized",
		"bucket", bucketName,
		"cdn_domain", cdnDomain,
		"emulator_host", emulatorHost,
	)

	return &objectStore{
		log:          serviceLog,
		client:       client,
		bucketName:   bucketName,
		cdnDomain:    cdnDomain,
		emulatorHost: emulatorHost,
	}, nil
}

func (s *objectStore) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	obj := s.client.Bucket(s.bucketName).Object(key)
	if opts.IfAbsent {
		obj = obj.If(storage.Conditions{DoesNotExist: true})
	}
	w := obj.NewWriter(ctx)
	if opts.ContentType != "" {
		w.ContentType = opts.ContentType
	}
	if opts.CacheControl != "" {
		w.CacheControl = opts.CacheControl
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		if opts.IfAbsent && isPreconditionFailed(err) {
			return ErrObjectExists
		}
		return fmt.Errorf("failed to close GCS writer for %q: %w", key, err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}

// Do NOT defer cancel() before returning the reader: the context would be
// canceled immediately and callers read 0 bytes. The cancel is attached to
// the reader's Close() instead.
type readCloserWithCancel struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *readCloserWithCancel) Close() error {
	err := r.ReadCloser.Close()
	if r.cancel != nil {
		r.cancel()
	}
	return err
}

func (s *objectStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	ctx2, cancel := context.WithTimeout(ctx, 2*time.Minute)
	r, err := s.client.Bucket(s.bucketName).Object(key).NewReader(ctx2)
	if err != nil {
		cancel()
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrObjectNotExist
		}
		return nil, fmt.Errorf("failed to open GCS reader for %q: %w", key, err)
	}
	return &readCloserWithCancel{ReadCloser: r, cancel: cancel}, nil
}

func (s *objectStore) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := s.client.Bucket(s.bucketName).Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete GCS object %q: %w", key, err)
	}
	return nil
}

func (s *objectStore) List(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	it := s.client.Bucket(s.bucketName).Objects(ctx, &storage.Query{Prefix: prefix})
	out := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list GCS prefix %q: %w", prefix, err)
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

func (s *objectStore) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	if s.emulatorHost != "" {
		return fmt.Sprintf("%s/%s/%s", s.emulatorHost, s.bucketName, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucketName, key)
}
