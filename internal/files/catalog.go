package files

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	apperrors "permitcli/internal/errors"
)

const listPath = "/api/v1/files"

// Sessioner supplies a valid bearer token, refreshing it as needed.
type Sessioner interface {
	EnsureValid(ctx context.Context) error
	Token() string
}

// Transporter performs authenticated calls against the API.
type Transporter interface {
	Exchange(ctx context.Context, method, path, token string, body, out any) *apperrors.Failure
	Stream(ctx context.Context, path, token string) (io.ReadCloser, *apperrors.Failure)
}

// File is one entry in the remote catalog.
type File struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Catalog lists and downloads files behind the license gate.
type Catalog struct {
	session   Sessioner
	transport Transporter
	limiter   *rate.Limiter
}

// NewCatalog creates a catalog client. Downloads are throttled to
// requestsPerSecond with the given burst allowance.
func NewCatalog(session Sessioner, transport Transporter, requestsPerSecond float64, burst int) *Catalog {
	return &Catalog{
		session:   session,
		transport: transport,
		limiter:   rate.NewLimiter(rate.Limit(requestsPerSecond), burst),
	}
}

type listResponse struct {
	Files []File `json:"files"`
}

// List returns the files the current license grants access to.
func (c *Catalog) List(ctx context.Context) ([]File, error) {
	if err := c.session.EnsureValid(ctx); err != nil {
		return nil, err
	}

	var resp listResponse
	if failure := c.transport.Exchange(ctx, http.MethodGet, listPath, c.session.Token(), nil, &resp); failure != nil {
		return nil, failure
	}

	slog.Debug("listed remote files", slog.Int("count", len(resp.Files)))
	return resp.Files, nil
}

// Download streams the file with the given id into w and returns the
// number of bytes written. The call blocks on the client-side limiter
// before touching the network.
func (c *Catalog) Download(ctx context.Context, id string, w io.Writer) (int64, error) {
	if id == "" {
		return 0, apperrors.NewInvalidOperation("file id required")
	}
	if err := c.session.EnsureValid(ctx); err != nil {
		return 0, err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, apperrors.NewNetworkFailure(err)
	}

	body, failure := c.transport.Stream(ctx, listPath+"/"+id+"/download", c.session.Token())
	if failure != nil {
		if apperrors.IsKind(failure, apperrors.KindDownloadRateLimited) {
			slog.Warn("server download limit hit",
				slog.String("file_id", id),
				slog.Duration("retry_after", failure.RetryAfter))
		}
		return 0, failure
	}
	defer body.Close()

	n, err := io.Copy(w, body)
	if err != nil {
		return n, apperrors.NewNetworkFailure(err)
	}

	slog.Info("downloaded file", slog.String("file_id", id), slog.Int64("bytes", n))
	return n, nil
}
