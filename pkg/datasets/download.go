package datasets

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/evolvekit/revolve/pkg/errors"
	"github.com/evolvekit/revolve/pkg/logging"
)

const cacheDirName = ".revolve"

// EnsureDataset returns a local path for a named remote dataset, downloading
// it into the user cache directory on first use.
func EnsureDataset(ctx context.Context, name, url string) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, errors.Unknown, "failed to resolve user home directory")
	}

	datasetDir := filepath.Join(homeDir, cacheDirName, "datasets")
	if err := os.MkdirAll(datasetDir, 0755); err != nil {
		return "", errors.Wrap(err, errors.Unknown, "failed to create dataset cache directory")
	}

	datasetPath := filepath.Join(datasetDir, name+filepath.Ext(url))
	if _, err := os.Stat(datasetPath); err == nil {
		return datasetPath, nil
	}

	logging.GetLogger().Info(ctx, "Dataset %s not cached, downloading from %s", name, url)
	if err := download(ctx, url, datasetPath); err != nil {
		return "", err
	}
	return datasetPath, nil
}

func download(ctx context.Context, url, destination string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errors.Wrap(err, errors.InvalidInput, "failed to build download request")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "dataset download failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.WithFields(
			errors.New(errors.Unknown, "dataset download returned non-OK status"),
			errors.Fields{"status": resp.StatusCode, "url": url})
	}

	out, err := os.Create(destination)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to create dataset file")
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(destination)
		return errors.Wrap(err, errors.Unknown, "failed to write dataset file")
	}
	return nil
}
