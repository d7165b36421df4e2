// Package ingest builds jurisdiction vector stores from folders of statute
// documents.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/ezqanoon/statute-bot/internal/assistant"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel uploads.
const DefaultConcurrency = 4

// Result describes a populated vector store.
type Result struct {
	VectorStoreID string
	// Files lists the uploaded file names in directory order.
	Files []string
}

// Ingester uploads documents into vector stores.
type Ingester struct {
	stores      assistant.VectorStores
	concurrency int
	logger      *slog.Logger
}

// New creates an Ingester. A concurrency below one uses DefaultConcurrency.
func New(stores assistant.VectorStores, concurrency int, logger *slog.Logger) *Ingester {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{stores: stores, concurrency: concurrency, logger: logger}
}

// Ingest creates a vector store called name and attaches every regular file
// in dir to it. Subdirectories are skipped. On failure the returned Result
// still carries the store ID so the partial store can be inspected or deleted.
func (i *Ingester) Ingest(ctx context.Context, name, dir string) (*Result, error) {
	files, err := regularFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files found in %s", dir)
	}

	storeID, err := i.stores.CreateVectorStore(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("create vector store %s: %w", name, err)
	}
	log := i.logger.With("vector_store_id", storeID, "name", name)
	log.Info("vector store created", "files", len(files))

	res := &Result{VectorStoreID: storeID}
	var mu sync.Mutex
	uploaded := make(map[string]bool, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for _, file := range files {
		g.Go(func() error {
			path := filepath.Join(dir, file)
			fileID, err := i.stores.UploadFile(gctx, path)
			if err != nil {
				return fmt.Errorf("upload %s: %w", file, err)
			}
			if err := i.stores.AttachFile(gctx, storeID, fileID); err != nil {
				return fmt.Errorf("attach %s: %w", file, err)
			}
			log.Info("file attached", "file", file, "file_id", fileID)

			mu.Lock()
			uploaded[file] = true
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()

	for _, file := range files {
		if uploaded[file] {
			res.Files = append(res.Files, file)
		}
	}
	if err != nil {
		return res, err
	}
	return res, nil
}

func regularFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
