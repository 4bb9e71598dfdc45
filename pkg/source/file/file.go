package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"
	"github.com/samber/lo"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/sessionreplay/log"
	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/source"
)

type Kind int

const (
	KindJSON Kind = iota
	KindYAML
)

var (
	ErrUnsupportedFormat = errors.New("unsupported capture format")
	ErrAmbiguous         = errors.New("capture contains more than one session")
)

var (
	formatPath   = jp.MustParseString("$.format")
	sessionsPath = jp.MustParseString("$.sessions[*]")
)

// KindFromPath selects the decoder by file extension. Unknown extensions are JSON.
func KindFromPath(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return KindYAML
	default:
		return KindJSON
	}
}

// CheckFormat returns an error if the capture format cannot be read.
func CheckFormat(version string) error {
	if !strings.HasPrefix(version, "v") {
		version = "v" + version
	}
	if !semver.IsValid(version) {
		return fmt.Errorf("%w: invalid version %q", ErrUnsupportedFormat, version)
	}
	if semver.Major(version) != semver.Major(FormatVersion) {
		return fmt.Errorf("%w: %s (supported: %s)",
			ErrUnsupportedFormat, version, semver.Major(FormatVersion))
	}
	return nil
}

// DecodeBundle decodes a complete capture
func DecodeBundle(data []byte, kind Kind) (*Bundle, error) {
	var b Bundle
	var err error
	if kind == KindYAML {
		err = yaml.Unmarshal(data, &b)
	} else {
		err = json.Unmarshal(data, &b)
	}
	if err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}
	if err := CheckFormat(b.Format); err != nil {
		return nil, err
	}
	return &b, nil
}

// DecodeSession decodes the session matching sel.
// A zero sel matches if the capture holds exactly one session.
func DecodeSession(data []byte, kind Kind, sel model.SessionSelection) (*Session, error) {
	if kind == KindYAML {
		b, err := DecodeBundle(data, kind)
		if err != nil {
			return nil, err
		}
		return pick(b.Sessions, sel)
	}
	return decodeJSONSession(data, sel)
}

// the JSON capture is only parsed generically, just the selected session
// is decoded into the capture types
func decodeJSONSession(data []byte, sel model.SessionSelection) (*Session, error) {
	obj, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}
	format, _ := formatPath.First(obj).(string)
	if err := CheckFormat(format); err != nil {
		return nil, err
	}
	path := sessionsPath
	if sel != (model.SessionSelection{}) {
		jPath := fmt.Sprintf(
			`$.sessions[?(@.selection.year == %d && @.selection.event == %q && @.selection.session == %q)]`,
			sel.Year, sel.Event, string(sel.Session))
		if path, err = jp.ParseString(jPath); err != nil {
			return nil, err
		}
	}
	res := path.Get(obj)
	switch len(res) {
	case 0:
		return nil, fmt.Errorf("%w: %s", source.ErrNotFound, sel)
	case 1:
	default:
		return nil, ErrAmbiguous
	}
	var s Session
	if err := json.Unmarshal([]byte(oj.JSON(res[0])), &s); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &s, nil
}

func pick(sessions []Session, sel model.SessionSelection) (*Session, error) {
	if sel != (model.SessionSelection{}) {
		sessions = lo.Filter(sessions, func(s Session, _ int) bool {
			return s.Selection == sel
		})
	}
	switch len(sessions) {
	case 0:
		return nil, fmt.Errorf("%w: %s", source.ErrNotFound, sel)
	case 1:
		return &sessions[0], nil
	default:
		return nil, ErrAmbiguous
	}
}

// Encode writes the inputs as capture using the current format version
func Encode(w io.Writer, kind Kind, inputs ...*model.SessionInput) error {
	b := Bundle{
		Format: FormatVersion,
		Sessions: lo.Map(inputs, func(in *model.SessionInput, _ int) Session {
			return FromInput(in)
		}),
	}
	if kind == KindYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(&b); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(&b)
}

type (
	Option func(*Source)
	// Source reads sessions from a capture file
	Source struct {
		path string
		l    *log.Logger
	}
)

var _ source.Source = (*Source)(nil)

func WithLogger(l *log.Logger) Option {
	return func(s *Source) {
		s.l = l
	}
}

func New(path string, opts ...Option) *Source {
	ret := &Source{
		path: path,
		l:    log.Default().Named("source.file"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (s *Source) Path() string {
	return s.path
}

func (s *Source) Load(
	ctx context.Context,
	sel model.SessionSelection,
) (*model.SessionInput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	sess, err := DecodeSession(data, KindFromPath(s.path), sel)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	s.l.Debug("session decoded",
		log.String("file", s.path),
		log.String("session", sess.Selection.String()),
		log.Int("drivers", len(sess.Drivers)),
		log.Int("laps", len(sess.Laps)))
	return sess.ToInput()
}

// ReadAll returns the inputs of all sessions in the capture file
func (s *Source) ReadAll(ctx context.Context) ([]*model.SessionInput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, err
	}
	b, err := DecodeBundle(data, KindFromPath(s.path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	ret := make([]*model.SessionInput, 0, len(b.Sessions))
	for i := range b.Sessions {
		in, err := b.Sessions[i].ToInput()
		if err != nil {
			return nil, fmt.Errorf("session %s: %w", b.Sessions[i].Selection, err)
		}
		ret = append(ret, in)
	}
	return ret, nil
}
