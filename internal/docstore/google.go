package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/dgallion1/bookdigest/internal/assemble"
)

const defaultDocsURL = "https://docs.googleapis.com"

// GoogleDocs talks to the Google Docs REST API with a bearer token.
type GoogleDocs struct {
	baseURL    string
	httpClient *http.Client
}

// NewGoogleDocs authorizes every request with accessToken. An empty baseURL
// targets the public API.
func NewGoogleDocs(accessToken, baseURL string, timeout time.Duration) *GoogleDocs {
	if baseURL == "" {
		baseURL = defaultDocsURL
	}
	client := oauth2.NewClient(context.Background(), oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	client.Timeout = timeout
	return &GoogleDocs{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

func (g *GoogleDocs) Create(ctx context.Context, title string) (string, error) {
	var out struct {
		DocumentID string `json:"documentId"`
	}
	if err := g.post(ctx, "create document", "/v1/documents", map[string]string{"title": title}, &out); err != nil {
		return "", err
	}
	if out.DocumentID == "" {
		return "", fmt.Errorf("create document: response has no documentId")
	}
	return out.DocumentID, nil
}

func (g *GoogleDocs) Apply(ctx context.Context, docID string, ops []assemble.StyleOp) error {
	body := batchUpdate{Requests: buildRequests(ops)}
	return g.post(ctx, "batch update", "/v1/documents/"+url.PathEscape(docID)+":batchUpdate", body, nil)
}

func (g *GoogleDocs) URL(docID string) string {
	return "https://docs.google.com/document/d/" + docID + "/edit"
}

func (g *GoogleDocs) post(ctx context.Context, op, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", op, err)
	}
	return nil
}

type batchUpdate struct {
	Requests []request `json:"requests"`
}

type request struct {
	InsertText           *insertText           `json:"insertText,omitempty"`
	UpdateTextStyle      *updateTextStyle      `json:"updateTextStyle,omitempty"`
	UpdateParagraphStyle *updateParagraphStyle `json:"updateParagraphStyle,omitempty"`
}

type location struct {
	Index int `json:"index"`
}

type insertText struct {
	Location location `json:"location"`
	Text     string   `json:"text"`
}

type textRange struct {
	StartIndex int `json:"startIndex"`
	EndIndex   int `json:"endIndex"`
}

type dimension struct {
	Magnitude float64 `json:"magnitude"`
	Unit      string  `json:"unit"`
}

type rgbColor struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

type color struct {
	Color struct {
		RGBColor rgbColor `json:"rgbColor"`
	} `json:"color"`
}

type fontFamily struct {
	FontFamily string `json:"fontFamily"`
}

type textStyle struct {
	Bold               bool       `json:"bold"`
	FontSize           dimension  `json:"fontSize"`
	WeightedFontFamily fontFamily `json:"weightedFontFamily"`
	ForegroundColor    color      `json:"foregroundColor"`
}

type updateTextStyle struct {
	Range     textRange `json:"range"`
	TextStyle textStyle `json:"textStyle"`
	Fields    string    `json:"fields"`
}

type paragraphStyle struct {
	Alignment string `json:"alignment"`
}

type updateParagraphStyle struct {
	Range          textRange      `json:"range"`
	ParagraphStyle paragraphStyle `json:"paragraphStyle"`
	Fields         string         `json:"fields"`
}

// buildRequests turns each op into an insert followed by text and paragraph
// style updates. Style updates over an empty range are left out.
func buildRequests(ops []assemble.StyleOp) []request {
	reqs := make([]request, 0, len(ops)*3)
	for _, op := range ops {
		reqs = append(reqs, request{InsertText: &insertText{Location: location{Index: op.Index}, Text: op.Text}})

		start, end := op.StyleRange()
		if end <= start {
			continue
		}
		rng := textRange{StartIndex: start, EndIndex: end}
		ts := textStyle{
			Bold:               op.Style.Bold,
			FontSize:           dimension{Magnitude: float64(op.Style.SizePt), Unit: "PT"},
			WeightedFontFamily: fontFamily{FontFamily: assemble.Font},
		}
		ts.ForegroundColor.Color.RGBColor = rgbColor(op.Style.Color)
		reqs = append(reqs,
			request{UpdateTextStyle: &updateTextStyle{
				Range:     rng,
				TextStyle: ts,
				Fields:    "bold,fontSize,weightedFontFamily,foregroundColor",
			}},
			request{UpdateParagraphStyle: &updateParagraphStyle{
				Range:          rng,
				ParagraphStyle: paragraphStyle{Alignment: op.Style.Align.String()},
				Fields:         "alignment",
			}},
		)
	}
	return reqs
}
