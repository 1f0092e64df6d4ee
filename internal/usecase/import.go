package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"qrmatch/internal/adapter/fs"
)

// ImportUseCase registers every matching file under a directory.
type ImportUseCase struct {
	register *RegisterUseCase
	logger   *slog.Logger
}

func NewImportUseCase(register *RegisterUseCase, logger *slog.Logger) *ImportUseCase {
	return &ImportUseCase{
		register: register,
		logger:   logger,
	}
}

// ImportResult contains the results of an import run.
type ImportResult struct {
	FilesFound int
	Registered int
	Skipped    int
	Errors     []ImportError
}

type ImportError struct {
	Path string
	ID   string
	Err  error
}

func (e ImportError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.Path, e.ID, e.Err)
}

// Import walks root and registers each file under an id derived from its
// relative path. Per-file failures are collected; only walking errors and
// cancellation abort the run. progress, if set, is called after each file.
func (u *ImportUseCase) Import(
	ctx context.Context,
	root string,
	includes, excludes []string,
	progress func(done, total int),
) (*ImportResult, error) {
	files, err := fs.NewWalker(includes, excludes).Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	result := &ImportResult{FilesFound: len(files)}

	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		id := fs.IDFromPath(file.RelPath)
		if err := u.importFile(ctx, file, id); err != nil {
			if errors.Is(err, errSkip) {
				result.Skipped++
			} else {
				result.Errors = append(result.Errors, ImportError{Path: file.RelPath, ID: id, Err: err})
				u.logger.WarnContext(ctx, "import failed", "path", file.RelPath, "id", id, "error", err)
			}
		} else {
			result.Registered++
		}

		if progress != nil {
			progress(i+1, len(files))
		}
	}

	u.logger.InfoContext(ctx, "import completed",
		"found", result.FilesFound,
		"registered", result.Registered,
		"skipped", result.Skipped,
		"failed", len(result.Errors),
	)
	return result, nil
}

var errSkip = errors.New("empty file")

func (u *ImportUseCase) importFile(ctx context.Context, file fs.FileInfo, id string) error {
	if id == "" {
		return errors.New("cannot derive an id from path")
	}

	content, err := fs.ReadFile(file.Path)
	if err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return errSkip
	}

	_, err = u.register.Register(ctx, id, content)
	return err
}
