package audio

import (
	"fmt"
	"strings"
	"time"

	"github.com/bogem/id3v2"

	"github.com/handiism/mashup/internal/model"
)

// TagEditAction defines how to handle individual ID3 tags.
type TagEditAction int

const (
	// TagEmpty clears the tag value.
	TagEmpty TagEditAction = iota

	// TagModify writes the value derived from the mashup.
	TagModify

	// TagDoNotModify leaves whatever the encoder wrote.
	TagDoNotModify
)

// TagConfig holds tagging configuration for each ID3 field.
//
// Example:
//
//	cfg := &TagConfig{
//	    ModifyTags: true,
//	    Artist:     TagModify,      // requested artist
//	    Title:      TagModify,      // "<artist> Mashup"
//	    Comments:   TagModify,      // list of source titles
//	    Year:       TagDoNotModify,
//	}
type TagConfig struct {
	// ModifyTags is a master switch. If false, no text frames are touched.
	ModifyTags bool

	// Artist controls the TPE1 (Lead artist) and TPE2 (Album artist) frames.
	Artist TagEditAction

	// Title controls the TIT2 (Title) frame.
	Title TagEditAction

	// Album controls the TALB (Album title) frame.
	Album TagEditAction

	// Year controls the TYER (Year) frame.
	Year TagEditAction

	// Comments controls the COMM frame holding the tracklist.
	Comments TagEditAction
}

// DefaultTagConfig returns a configuration that writes every field.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		ModifyTags: true,
		Artist:     TagModify,
		Title:      TagModify,
		Album:      TagModify,
		Year:       TagModify,
		Comments:   TagModify,
	}
}

// MashupInfo is the metadata written onto a finished mashup.
type MashupInfo struct {
	Artist  string
	Created time.Time
	Sources []model.TracklistEntry
}

// Title returns the display title of the mashup.
func (m MashupInfo) Title() string {
	return m.Artist + " Mashup"
}

// Tagger writes ID3 tags to mp3 mashups.
//
// Tagger uses the id3v2 library to set:
//   - Artist, Album Artist, Title and Album
//   - Year of creation
//   - A comment listing the source tracks with their offsets
//   - Cover Art (attached picture)
//
// Example:
//
//	tagger := NewTagger(DefaultTagConfig())
//	err := tagger.SaveTags("Adele.mp3", info, coverJPEG)
type Tagger struct {
	config *TagConfig
}

// NewTagger creates a new Tagger. A nil config uses DefaultTagConfig().
func NewTagger(config *TagConfig) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config}
}

// SaveTags writes tags for info, and artwork when non-nil, into the mp3 at path.
func (t *Tagger) SaveTags(path string, info MashupInfo, artwork []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open tags: %w", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	if t.config.ModifyTags {
		t.updateStringTags(tag, info)
	}

	if artwork != nil {
		t.updateArtwork(tag, artwork)
	}

	return tag.Save()
}

func (t *Tagger) updateStringTags(tag *id3v2.Tag, info MashupInfo) {
	switch t.config.Artist {
	case TagEmpty:
		tag.SetArtist("")
		tag.DeleteFrames("TPE2")
	case TagModify:
		tag.SetArtist(info.Artist)
		tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, info.Artist)
	}

	switch t.config.Title {
	case TagEmpty:
		tag.SetTitle("")
	case TagModify:
		tag.SetTitle(info.Title())
	}

	switch t.config.Album {
	case TagEmpty:
		tag.SetAlbum("")
	case TagModify:
		tag.SetAlbum(info.Title())
	}

	switch t.config.Year {
	case TagEmpty:
		tag.DeleteFrames("TYER")
	case TagModify:
		created := info.Created
		if created.IsZero() {
			created = time.Now()
		}
		tag.SetYear(created.Format("2006"))
	}

	switch t.config.Comments {
	case TagEmpty:
		tag.DeleteFrames(tag.CommonID("Comments"))
	case TagModify:
		tag.DeleteFrames(tag.CommonID("Comments"))
		if len(info.Sources) > 0 {
			tag.AddCommentFrame(id3v2.CommentFrame{
				Encoding:    id3v2.EncodingUTF8,
				Language:    "eng",
				Description: "Tracklist",
				Text:        SourceList(info.Sources),
			})
		}
	}

	tag.SetGenre("Mashup")
}

// updateArtwork embeds cover art as the front cover picture frame.
func (t *Tagger) updateArtwork(tag *id3v2.Tag, artwork []byte) {
	tag.DeleteFrames(tag.CommonID("Attached picture"))

	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    "image/jpeg",
		PictureType: id3v2.PTFrontCover,
		Description: "Cover",
		Picture:     artwork,
	})
}

// SourceList renders one "mm:ss Title" line per source.
func SourceList(entries []model.TracklistEntry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%s %s", clock(e.Start), e.Title)
	}
	return strings.Join(lines, "\n")
}

// clock formats d as m:ss, or h:mm:ss past an hour.
func clock(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
