package graph

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Backend lays out a DOT document and returns the image bytes in format.
type Backend interface {
	Name() string
	Layout(ctx context.Context, dot []byte, format string) ([]byte, error)
}

// DotBackend runs the Graphviz dot binary, which produces a layered layout.
type DotBackend struct {
	Binary string // "dot" when empty
}

func (b *DotBackend) Name() string {
	if b.Binary == "" {
		return "dot"
	}
	return b.Binary
}

// Available reports whether the binary can be found.
func (b *DotBackend) Available() error {
	if _, err := exec.LookPath(b.Name()); err != nil {
		return &RenderBackendUnavailableError{Backend: b.Name(), Err: err}
	}
	return nil
}

func (b *DotBackend) Layout(ctx context.Context, dot []byte, format string) ([]byte, error) {
	path, err := exec.LookPath(b.Name())
	if err != nil {
		return nil, &RenderBackendUnavailableError{Backend: b.Name(), Format: format, Err: err}
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, "-T"+format)
	cmd.Stdin = bytes.NewReader(dot)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		return nil, &RenderBackendUnavailableError{
			Backend: b.Name(),
			Format:  format,
			Stderr:  stderr.String(),
			Err:     err,
		}
	}
	if stdout.Len() == 0 {
		return nil, &RenderBackendUnavailableError{
			Backend: b.Name(),
			Format:  format,
			Stderr:  stderr.String(),
			Err:     errors.New("empty output"),
		}
	}
	return stdout.Bytes(), nil
}
