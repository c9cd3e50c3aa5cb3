// Package gdrive stores backup snapshots as JSON files in Google Drive.
//
// Two ways of authorizing are supported: the signed-in user's OAuth token
// (kept in the kv store and refreshed automatically) and a service account
// key, matching how the Sheets export authorizes.
package gdrive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"repairdesk/internal/backup"
	"repairdesk/internal/logger"
)

// MimeType of every snapshot.
const MimeType = "application/json"

const listFields = "nextPageToken, files(id, name, modifiedTime, size)"

// Remote implements backup.Remote on top of the Drive v3 API.
type Remote struct {
	auth     Authenticator
	folderID string
	opts     []option.ClientOption
	log      zerolog.Logger
}

// NewRemote creates a Drive remote. Snapshots are created in folderID, or in
// the Drive root when folderID is empty.
func NewRemote(auth Authenticator, folderID string, opts ...option.ClientOption) *Remote {
	return &Remote{
		auth:     auth,
		folderID: folderID,
		opts:     opts,
		log:      logger.WithComponent("gdrive"),
	}
}

var _ backup.Remote = (*Remote)(nil)

func (r *Remote) service(ctx context.Context) (*drive.Service, error) {
	client, err := r.auth.Client(ctx)
	if err != nil {
		return nil, err
	}
	opts := append([]option.ClientOption{option.WithHTTPClient(client)}, r.opts...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return svc, nil
}

// Authenticated reports whether the authenticator holds a session.
func (r *Remote) Authenticated(ctx context.Context) bool {
	return r.auth.Authenticated(ctx)
}

// SignOut drops the session.
func (r *Remote) SignOut(ctx context.Context) error {
	return r.auth.SignOut(ctx)
}

// List returns the JSON files whose name starts with prefix, newest first.
func (r *Remote) List(ctx context.Context, prefix string) ([]backup.Snapshot, error) {
	const op = "List"

	svc, err := r.service(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	var snaps []backup.Snapshot
	err = svc.Files.List().
		Q(listQuery(prefix, r.folderID)).
		Fields(listFields).
		OrderBy("modifiedTime desc").
		Spaces("drive").
		PageSize(100).
		Pages(ctx, func(page *drive.FileList) error {
			for _, f := range page.Files {
				if !strings.HasPrefix(f.Name, prefix) {
					continue
				}
				snaps = append(snaps, toSnapshot(f))
			}
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	r.log.Debug().Str("prefix", prefix).Int("snapshots", len(snaps)).Msg("Listed snapshots")
	return snaps, nil
}

// Upload creates a new file named name holding data.
func (r *Remote) Upload(ctx context.Context, name string, data []byte) (backup.Snapshot, error) {
	const op = "Upload"

	svc, err := r.service(ctx)
	if err != nil {
		return backup.Snapshot{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	meta := &drive.File{Name: name, MimeType: MimeType}
	if r.folderID != "" {
		meta.Parents = []string{r.folderID}
	}
	f, err := svc.Files.Create(meta).
		Media(bytes.NewReader(data), googleapi.ContentType(MimeType)).
		Fields("id, name, modifiedTime, size").
		Context(ctx).
		Do()
	if err != nil {
		return backup.Snapshot{}, fmt.Errorf("%s: %w", op, classify(err))
	}

	r.log.Debug().Str("file_id", f.Id).Str("name", f.Name).Msg("Uploaded snapshot")
	return toSnapshot(f), nil
}

// Download returns the content of the file with id.
func (r *Remote) Download(ctx context.Context, id string) ([]byte, error) {
	const op = "Download"

	svc, err := r.service(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}

	resp, err := svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, classify(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s: %w", op, id, err)
	}
	return data, nil
}

// Delete removes the file with id.
func (r *Remote) Delete(ctx context.Context, id string) error {
	const op = "Delete"

	svc, err := r.service(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	if err := svc.Files.Delete(id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%s: %w", op, classify(err))
	}
	return nil
}

func listQuery(prefix, folderID string) string {
	q := fmt.Sprintf("name contains '%s' and mimeType='%s' and trashed=false", escapeQuery(prefix), MimeType)
	if folderID != "" {
		q += fmt.Sprintf(" and '%s' in parents", escapeQuery(folderID))
	}
	return q
}

func escapeQuery(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	return strings.ReplaceAll(v, `'`, `\'`)
}

func toSnapshot(f *drive.File) backup.Snapshot {
	modified, _ := time.Parse(time.RFC3339, f.ModifiedTime)
	return backup.Snapshot{
		ID:           f.Id,
		Name:         f.Name,
		ModifiedTime: modified,
		Size:         f.Size,
	}
}

// classify maps credential failures onto backup.ErrUnauthorized.
func classify(err error) error {
	if err == nil || errors.Is(err, backup.ErrUnauthorized) {
		return err
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%w: %v", backup.ErrUnauthorized, err)
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		return fmt.Errorf("%w: %v", backup.ErrUnauthorized, err)
	}
	return err
}
