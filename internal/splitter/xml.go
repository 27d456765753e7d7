package splitter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sir_venger/hdfs_connector/internal/models"
)

const (
	// DefaultMaxTagLength предел длины одного тега (включая комментарии и CDATA).
	DefaultMaxTagLength = 1 << 20

	defaultRootElement = "Dataset"
)

// XML делит документ вида <Root><Row>...</Row><Row/>...</Root> по элементам строки.
// Каждый воркер оборачивает свой фрагмент в Header/Footer, так что его вывод
// остаётся корректным XML-документом.
// Комментарий или CDATA, начатые до start, не распознаются: тег строки внутри них
// будет принят за настоящий.
type XML struct {
	Options
	// RowPath путь до элемента строки, например "Dataset/Row". Последний элемент пути задаёт имя строки.
	RowPath string
	// Header и Footer выводятся до и после фрагмента. Пустые выводятся из RowPath.
	Header string
	Footer string
	// MaxTagLength предел длины тега, 0 значит DefaultMaxTagLength.
	MaxTagLength int
}

var _ Splitter = (*XML)(nil)

// RowElement имя элемента строки.
func (x *XML) RowElement() string {
	parts := pathElements(x.RowPath)
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// Envelope возвращает header и footer, которыми оборачивается фрагмент.
func (x *XML) Envelope() (string, string) {
	header, footer := x.Header, x.Footer
	if header != "" && footer != "" {
		return header, footer
	}
	parents := pathElements(x.RowPath)
	if len(parents) > 0 {
		parents = parents[:len(parents)-1]
	}
	if len(parents) == 0 {
		parents = []string{defaultRootElement}
	}
	var open, closing strings.Builder
	for i := range parents {
		open.WriteString("<" + parents[i] + ">")
		closing.WriteString("</" + parents[len(parents)-1-i] + ">")
	}
	if header == "" {
		header = open.String()
	}
	if footer == "" {
		footer = closing.String()
	}
	return header, footer
}

// RootElement имя корневого элемента: последний тег в тексте footer.
func (x *XML) RootElement() string {
	_, footer := x.Envelope()
	closeAt := strings.LastIndexByte(footer, '>')
	if closeAt < 0 {
		return defaultRootElement
	}
	openAt := strings.LastIndexByte(footer[:closeAt], '<')
	if openAt < 0 {
		return defaultRootElement
	}
	_, name := classifyTag([]byte(footer[openAt : closeAt+1]))
	if name == "" {
		return defaultRootElement
	}
	return name
}

func pathElements(p string) []string {
	var out []string
	for _, e := range strings.Split(p, "/") {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

type tagKind int

const (
	tagOpen tagKind = iota
	tagClose
	tagSelfClosing
	// tagMarkup <?...?>, <!--...-->, <![CDATA[...]]>, <!DOCTYPE ...>
	tagMarkup
)

// classifyTag разбирает полный тег от '<' до '>'.
func classifyTag(tag []byte) (tagKind, string) {
	if len(tag) < 2 {
		return tagMarkup, ""
	}
	kind := tagOpen
	body := tag[1:]
	switch body[0] {
	case '?', '!':
		return tagMarkup, ""
	case '/':
		kind = tagClose
		body = body[1:]
	default:
		if len(tag) >= 3 && tag[len(tag)-2] == '/' {
			kind = tagSelfClosing
		}
	}
	n := 0
	for n < len(body) {
		c := body[n]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '/' || c == '>' {
			break
		}
		n++
	}
	return kind, string(body[:n])
}

var (
	commentOpen  = []byte("<!--")
	commentClose = []byte("-->")
	cdataOpen    = []byte("<![CDATA[")
	cdataClose   = []byte("]]>")
)

// tagBuffer собирает тег, который может пересекать границу окна.
type tagBuffer struct {
	buf   []byte
	start int64
	quote byte
	open  bool
}

func (t *tagBuffer) reset(start int64) {
	t.buf = t.buf[:0]
	t.start = start
	t.quote = 0
	t.open = true
}

// feed дописывает байты из p до закрытия тега. Возвращает число поглощённых байт
// и признак того, что тег закрыт.
func (t *tagBuffer) feed(p []byte) (int, bool) {
	for i, c := range p {
		t.buf = append(t.buf, c)
		if c != '>' {
			if t.quote != 0 {
				if c == t.quote {
					t.quote = 0
				}
			} else if (c == '"' || c == '\'') && !t.special() {
				t.quote = c
			}
			continue
		}
		if t.quote != 0 {
			continue
		}
		switch {
		case bytes.HasPrefix(t.buf, commentOpen):
			if len(t.buf) >= len(commentOpen)+len(commentClose)-1 && bytes.HasSuffix(t.buf, commentClose) {
				t.open = false
				return i + 1, true
			}
		case bytes.HasPrefix(t.buf, cdataOpen):
			if len(t.buf) >= len(cdataOpen)+len(cdataClose) && bytes.HasSuffix(t.buf, cdataClose) {
				t.open = false
				return i + 1, true
			}
		default:
			t.open = false
			return i + 1, true
		}
	}
	return len(p), false
}

func (t *tagBuffer) special() bool {
	return len(t.buf) >= 2 && t.buf[1] == '!'
}

// Split стримит строки, открывающий тег которых начинается в [start, start+length).
func (x *XML) Split(ctx context.Context, r io.ReadSeeker, start, length int64, w io.Writer) (Stats, error) {
	row := x.RowElement()
	if row == "" {
		return Stats{}, fmt.Errorf("%w: empty row tag", models.ErrConfiguration)
	}
	root := x.RootElement()
	header, footer := x.Envelope()
	maxTag := x.MaxTagLength
	if maxTag <= 0 {
		maxTag = DefaultMaxTagLength
	}
	log := x.logger()

	out := &countingWriter{w: w}
	st := Stats{FirstRecord: -1, StoppedAt: start}
	if _, err := io.WriteString(out, header); err != nil {
		return st, fmt.Errorf("write header: %w", err)
	}
	finish := func() (Stats, error) {
		if _, err := io.WriteString(out, footer); err != nil {
			return st, fmt.Errorf("write footer: %w", err)
		}
		st.Bytes = out.n
		log.Debug("xml: stop piping", "pos", st.StoppedAt, "records", st.Records)
		return st, nil
	}
	if length <= 0 {
		return finish()
	}

	end := start + length
	cur, err := newCursor(r, x.bufferSize(), 0, start)
	if err != nil {
		return st, err
	}
	log.Debug("xml: start looking", "row", row, "root", root, "from", start, "end", end)

	var (
		state = StateSeeking
		depth int
		tag   tagBuffer
	)
	emit := func(p []byte) error {
		if state == StateSeeking || state == StateDone {
			return nil
		}
		if _, err := out.Write(p); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		return nil
	}

	// onTag применяет правило владения к собранному тегу.
	onTag := func(raw []byte, p int64) error {
		e := p + int64(len(raw))
		kind, name := classifyTag(raw)
		isRow := name == row && kind != tagMarkup

		switch state {
		case StateSeeking:
			if p >= end {
				state = StateDone
				return nil
			}
			if kind == tagClose && name == root {
				state = StateDone
				return nil
			}
			if !isRow || kind == tagClose {
				return nil
			}
			state = StateStreaming
			st.FirstRecord = p
			log.Debug("xml: start piping", "tag", string(raw), "pos", p)
		case StateStreaming, StateAwaiting:
			if depth == 0 {
				switch {
				case kind == tagMarkup:
					return emit(raw)
				case kind == tagClose && name == root:
					state = StateDone
					return nil
				case !isRow || kind == tagClose:
					return fmt.Errorf("%w: unexpected tag %q at %d outside of <%s>",
						models.ErrMalformedInput, raw, p, row)
				case p >= end:
					state = StateDone
					return nil
				}
			}
		}

		if err := emit(raw); err != nil {
			return err
		}
		if isRow {
			switch kind {
			case tagOpen:
				depth++
			case tagClose:
				depth--
			}
			if depth == 0 && kind != tagOpen {
				st.Records++
				if e >= end {
					state = StateDone
				}
			}
		}
		return nil
	}

	for state != StateDone {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		ok, err := cur.fill(0)
		if err != nil {
			return st, err
		}
		if !ok {
			pos := cur.next()
			st.StoppedAt = pos
			switch {
			case tag.open:
				return st, fmt.Errorf("%w: end of data inside tag started at %d", models.ErrMalformedInput, tag.start)
			case depth > 0:
				return st, fmt.Errorf("%w: end of data inside <%s> at %d", models.ErrMalformedInput, row, pos)
			case pos < end:
				return st, fmt.Errorf("%w: end of data at %d before range end %d", models.ErrMalformedInput, pos, end)
			}
			state = StateDone
			break
		}

		buf := cur.buf
		i := 0
		for i < len(buf) && state != StateDone {
			if tag.open {
				n, closed := tag.feed(buf[i:])
				i += n
				if len(tag.buf) > maxTag {
					return st, fmt.Errorf("%w: tag at %d longer than %d bytes", models.ErrMalformedInput, tag.start, maxTag)
				}
				if closed {
					if err := onTag(tag.buf, tag.start); err != nil {
						return st, err
					}
				}
				continue
			}

			j := bytes.IndexByte(buf[i:], '<')
			if j < 0 {
				j = len(buf)
			} else {
				j += i
			}
			if state == StateSeeking && cur.base+int64(j) > end {
				state = StateDone
				break
			}
			if err := emit(buf[i:j]); err != nil {
				return st, err
			}
			if state == StateStreaming && depth > 0 && cur.base+int64(j) >= end {
				state = StateAwaiting
				log.Debug("xml: looking for last closing row tag", "pos", cur.base+int64(j))
			}
			i = j
			if i < len(buf) {
				tag.reset(cur.base + int64(i))
			}
		}
		st.StoppedAt = cur.base + int64(i)
	}

	return finish()
}
