package assignment

import (
	"encoding/json"

	apperr "github.com/hrygo/assignflow/server/internal/errors"
)

// Attachment is a file reference carried on series and instances. Exactly one
// of Path or Content is set: Path points at already-stored content, Content
// carries inline bytes that the caller has not persisted yet. The zero value
// is invalid.
type Attachment struct {
	Name string
	// Path references stored content. Mutually exclusive with Content.
	Path string
	// Content is inline file bytes to be stored by the resolver.
	Content []byte
}

func (a Attachment) validate() error {
	if a.Name == "" {
		return apperr.InvalidArgument("attachment name is required")
	}
	if a.Path == "" && len(a.Content) == 0 {
		return apperr.InvalidArgument("attachment %q has neither path nor content", a.Name)
	}
	if a.Path != "" && len(a.Content) > 0 {
		return apperr.InvalidArgument("attachment %q has both path and content", a.Name)
	}
	return nil
}

// AttachmentResolver turns inline attachment content into stored references.
// Resolution happens once at the request boundary, before expansion, so every
// instance of a series shares the same stored references.
type AttachmentResolver interface {
	Resolve(name string, content []byte) (path string, err error)
}

// storedAttachment is the persisted JSON shape.
type storedAttachment struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// resolveAttachments validates the attachment list, resolves inline content
// through the resolver, and returns the JSON column value. Returns nil for an
// empty list.
func resolveAttachments(attachments []Attachment, resolver AttachmentResolver) (*string, error) {
	if len(attachments) == 0 {
		return nil, nil
	}
	stored := make([]storedAttachment, 0, len(attachments))
	for _, a := range attachments {
		if err := a.validate(); err != nil {
			return nil, err
		}
		path := a.Path
		if path == "" {
			if resolver == nil {
				return nil, apperr.InvalidArgument("attachment %q carries inline content but no resolver is configured", a.Name)
			}
			resolved, err := resolver.Resolve(a.Name, a.Content)
			if err != nil {
				return nil, apperr.Wrap(err, apperr.ErrCodeInvalidArgument, "failed to store attachment "+a.Name)
			}
			path = resolved
		}
		stored = append(stored, storedAttachment{Name: a.Name, Path: path})
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.ErrCodeInvalidArgument, "failed to encode attachments")
	}
	encoded := string(raw)
	return &encoded, nil
}
