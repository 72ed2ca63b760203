// Package extract turns a puzzle page into a letter set and its pangram answers.
//
// The selectors mirror the page template served by the puzzle site: one container
// holding letter images whose alt text encodes the letters, and answer tables whose
// rows carry a note cell naming the answer category.
package extract

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/spellingbee-crawler/internal/puzzle"
)

// Default selectors and labels for the puzzle page template.
const (
	DefaultContainerClass = "thinner-space-after"
	DefaultNoteClass      = "bee-note"
	DefaultAnswerClass    = "bee-hover"
	DefaultCenterPrefix   = "center letter "
)

// DefaultCategories lists the note labels that mark a pangram row.
var DefaultCategories = []string{"pangram", "perfect pangram", "pangram, disallowed elsewhere"}

var (
	// ErrContainerNotFound means the letter container is missing from the page.
	ErrContainerNotFound = errors.New("letter container not found")
	// ErrNoLetterImages means the container holds no letter images.
	ErrNoLetterImages = errors.New("no letter images found")
	// ErrLetterCount matches any LetterCountError.
	ErrLetterCount = errors.New("wrong number of letters")
)

// LetterCountError reports how many letters were found when the count is not 7.
type LetterCountError struct {
	Got int
}

func (e *LetterCountError) Error() string {
	return fmt.Sprintf("wrong number of letters found (%d)", e.Got)
}

// Is lets errors.Is match ErrLetterCount.
func (e *LetterCountError) Is(target error) bool {
	return target == ErrLetterCount
}

// Config controls the page conventions the Extractor relies on.
type Config struct {
	ContainerClass string
	NoteClass      string
	AnswerClass    string
	CenterPrefix   string
	Categories     []string
}

// Result is a successfully parsed page.
type Result struct {
	Letters  puzzle.LetterSet
	Pangrams []string
	// Unrecognized holds notes that mention a pangram but match no known category.
	Unrecognized []string
	// MissingAnswers counts pangram rows without an answer link.
	MissingAnswers int
}

// Record converts the result into a puzzle.Record for id.
func (r Result) Record(id puzzle.ID) puzzle.Record {
	return puzzle.Record{
		ID:       id,
		Letters:  r.Letters,
		Pangrams: slices.Clone(r.Pangrams),
	}
}

// Extractor parses puzzle pages. It holds no mutable state and is safe for concurrent use.
type Extractor struct {
	cfg Config
}

// New builds an Extractor, filling unset fields with the defaults.
func New(cfg Config) *Extractor {
	if cfg.ContainerClass == "" {
		cfg.ContainerClass = DefaultContainerClass
	}
	if cfg.NoteClass == "" {
		cfg.NoteClass = DefaultNoteClass
	}
	if cfg.AnswerClass == "" {
		cfg.AnswerClass = DefaultAnswerClass
	}
	if cfg.CenterPrefix == "" {
		cfg.CenterPrefix = DefaultCenterPrefix
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories
	}
	return &Extractor{cfg: cfg}
}

// Extract parses an HTML document.
func (e *Extractor) Extract(r io.Reader) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return Result{}, fmt.Errorf("parse html: %w", err)
	}
	letters, err := e.letters(doc)
	if err != nil {
		return Result{}, err
	}
	res := Result{Letters: letters, Pangrams: []string{}}
	e.pangrams(doc, &res)
	return res, nil
}

func (e *Extractor) letters(doc *goquery.Document) (puzzle.LetterSet, error) {
	container := doc.Find("div." + e.cfg.ContainerClass).First()
	if container.Length() == 0 {
		return "", ErrContainerNotFound
	}
	imgs := container.Find("img")
	if imgs.Length() == 0 {
		return "", ErrNoLetterImages
	}

	var (
		center    rune
		hasCenter bool
		others    []rune
	)
	if c, ok := centerLetter(imgs.First().AttrOr("alt", ""), e.cfg.CenterPrefix); ok {
		center, hasCenter = c, true
	}
	imgs.Slice(1, imgs.Length()).Each(func(_ int, img *goquery.Selection) {
		if c, ok := singleLetter(img.AttrOr("alt", "")); ok {
			others = append(others, c)
		}
	})

	count := len(others)
	if hasCenter {
		count++
	}
	if !hasCenter || count != puzzle.LetterCount {
		return "", &LetterCountError{Got: count}
	}
	ls, err := puzzle.NewLetterSet(center, others)
	if err != nil {
		return "", fmt.Errorf("build letter set: %w", err)
	}
	return ls, nil
}

// centerLetter reads the character immediately after prefix.
func centerLetter(alt, prefix string) (rune, bool) {
	if !strings.HasPrefix(alt, prefix) || len(alt) <= len(prefix) {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(alt[len(prefix):])
	if !isASCIILetter(r) {
		return 0, false
	}
	return unicode.ToUpper(r), true
}

func singleLetter(alt string) (rune, bool) {
	if utf8.RuneCountInString(alt) != 1 {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(alt)
	if !isASCIILetter(r) {
		return 0, false
	}
	return unicode.ToUpper(r), true
}

func isASCIILetter(r rune) bool {
	return r < utf8.RuneSelf && unicode.IsLetter(r)
}

func (e *Extractor) pangrams(doc *goquery.Document, res *Result) {
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		note := row.Find("td." + e.cfg.NoteClass).First()
		if note.Length() == 0 {
			return
		}
		label := note.Text()
		if !slices.Contains(e.cfg.Categories, label) {
			if strings.Contains(strings.ToLower(label), "pangram") {
				res.Unrecognized = append(res.Unrecognized, strings.TrimSpace(label))
			}
			return
		}
		link := row.Find("td." + e.cfg.AnswerClass).First().Find("a").First()
		if link.Length() == 0 {
			res.MissingAnswers++
			return
		}
		res.Pangrams = append(res.Pangrams, strings.ToUpper(strippedText(link)))
	})
}

// strippedText concatenates every trimmed, non-empty text fragment under sel.
func strippedText(sel *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(strings.TrimSpace(n.Data))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return b.String()
}
