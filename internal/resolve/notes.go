package resolve

import (
	"github.com/agentstation/utc"

	"github.com/annotbase/annotload/internal/config"
	"github.com/annotbase/annotload/pkg/annot"
)

// NoteBuilder attaches the optional free-text note to an evidence row.
// The legacy chunked variant splits text into ordered segments of the
// profile's chunk size; the single variant stores it whole. Both designs
// describe the same entity, selected per profile.
type NoteBuilder struct {
	alloc      *Allocator
	variant    string
	chunkSize  int
	objectKind int64
	noteType   int64
}

// NewNoteBuilder creates the builder from the profile's note settings.
func NewNoteBuilder(alloc *Allocator, profile config.Profile) *NoteBuilder {
	return &NoteBuilder{
		alloc:      alloc,
		variant:    profile.NoteVariant,
		chunkSize:  profile.NoteChunkSize,
		objectKind: profile.NoteObjectKind,
		noteType:   profile.NoteType,
	}
}

// Build returns the note row for text, or nil when text is empty.
func (b *NoteBuilder) Build(evidence int64, text string, editor int64, entry utc.Time) *annot.Note {
	if text == "" {
		return nil
	}

	note := &annot.Note{
		Key:        b.alloc.NextNote(),
		Evidence:   evidence,
		ObjectKind: b.objectKind,
		NoteType:   b.noteType,
		CreatedBy:  editor,
		ModifiedBy: editor,
		Created:    entry,
		Modified:   entry,
	}

	if b.variant != config.NoteChunked {
		note.Text = text
		return note
	}

	for seq := 1; text != ""; seq++ {
		chunk := text
		if len(chunk) > b.chunkSize {
			chunk = chunk[:b.chunkSize]
		}
		note.Chunks = append(note.Chunks, annot.NoteChunk{
			Note:     note.Key,
			Sequence: seq,
			Text:     chunk,
		})
		text = text[len(chunk):]
	}
	return note
}
