package docstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/google/uuid"

	"github.com/dgallion1/bookdigest/internal/assemble"
)

// DocxStore writes documents as .docx files in a local directory and serves
// them from publicBaseURL.
type DocxStore struct {
	dir           string
	publicBaseURL string
}

func NewDocxStore(dir, publicBaseURL string) (*DocxStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &DocxStore{dir: dir, publicBaseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

// Create reserves an ID by writing an empty document.
func (s *DocxStore) Create(ctx context.Context, title string) (string, error) {
	id := uuid.NewString()
	if err := s.write(id, docx.New().WithDefaultTheme()); err != nil {
		return "", err
	}
	return id, nil
}

// Apply renders ops into the document, replacing its contents.
func (s *DocxStore) Apply(ctx context.Context, docID string, ops []assemble.StyleOp) error {
	path, err := s.Path(docID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("document %s: %w", docID, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(docID, Render(ops))
}

func (s *DocxStore) URL(docID string) string {
	return s.publicBaseURL + "/documents/" + docID
}

// Path returns the file for docID, rejecting anything that is not an ID this
// store could have issued.
func (s *DocxStore) Path(docID string) (string, error) {
	id, err := uuid.Parse(docID)
	if err != nil {
		return "", fmt.Errorf("invalid document id %q", docID)
	}
	return filepath.Join(s.dir, id.String()+".docx"), nil
}

func (s *DocxStore) write(id string, doc *docx.Docx) error {
	path := filepath.Join(s.dir, id+".docx")
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	if _, err := doc.WriteTo(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write docx: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close docx: %w", err)
	}
	return os.Rename(tmp, path)
}

// Render lays ops out as paragraphs. Every line break in an op's text ends
// the current paragraph; text between breaks becomes a styled run.
func Render(ops []assemble.StyleOp) *docx.Docx {
	doc := docx.New().WithDefaultTheme()
	var para *docx.Paragraph
	for _, op := range ops {
		segments := strings.Split(op.Text, "\n")
		for i, seg := range segments {
			if seg != "" {
				if para == nil {
					para = doc.AddParagraph().Justification(justification(op.Style.Align))
				}
				styleRun(para.AddText(seg), op.Style)
			}
			if i < len(segments)-1 {
				if para == nil {
					doc.AddParagraph()
				}
				para = nil
			}
		}
	}
	return doc
}

func styleRun(r *docx.Run, st assemble.Style) {
	r.Font(assemble.Font, assemble.Font, assemble.Font, "default").
		Size(strconv.Itoa(st.SizePt * 2)).
		Color(st.Color.Hex())
	if st.Bold {
		r.Bold()
	}
}

func justification(a assemble.Align) string {
	switch a {
	case assemble.AlignCenter:
		return "center"
	case assemble.AlignJustified:
		return "both"
	default:
		return "start"
	}
}
