package connector

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	progressBarWidth     = 32
	progressRenderPeriod = 120 * time.Millisecond
)

// progress рисует ASCII-индикатор выполнения. Nil-значение ничего не делает.
type progress struct {
	out           io.Writer
	prefix        string
	total         int64
	current       int64
	lastRender    time.Time
	lastLineWidth int
	finished      bool
	mu            sync.Mutex
}

func (c *Connector) newProgress(prefix string, total int64) *progress {
	if c.Progress == nil {
		return nil
	}
	return &progress{out: c.Progress, prefix: prefix, total: total}
}

func (p *progress) add(n int64) {
	if p == nil || n <= 0 {
		return
	}
	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return
	}
	p.current += n
	p.mu.Unlock()
	p.render()
}

func (p *progress) render() {
	p.mu.Lock()
	now := time.Now()
	if p.finished || now.Sub(p.lastRender) < progressRenderPeriod {
		p.mu.Unlock()
		return
	}
	line := p.lineLocked()
	padding := pad(p.lastLineWidth, len(line))
	p.lastLineWidth = len(line)
	p.lastRender = now
	p.mu.Unlock()

	fmt.Fprintf(p.out, "\r%s%s", line, padding)
}

func (p *progress) lineLocked() string {
	var b strings.Builder
	b.Grow(len(p.prefix) + 64)
	b.WriteString(p.prefix)
	b.WriteByte(' ')

	if p.total <= 0 {
		b.WriteString(humanBytes(p.current))
		b.WriteString(" transferred")
		return b.String()
	}

	ratio := min(float64(p.current)/float64(p.total), 1)
	filled := min(int(ratio*progressBarWidth+0.5), progressBarWidth)
	b.WriteByte('[')
	b.WriteString(strings.Repeat("=", filled))
	b.WriteString(strings.Repeat(" ", progressBarWidth-filled))
	b.WriteString("] ")
	fmt.Fprintf(&b, "%3d%% ", int(ratio*100+0.5))
	b.WriteString(humanBytes(p.current))
	b.WriteByte('/')
	b.WriteString(humanBytes(p.total))
	return b.String()
}

// done завершает строку отметкой успеха или ошибкой.
func (p *progress) done(err error) {
	if p == nil {
		return
	}
	p.mu.Lock()
	if p.finished {
		p.mu.Unlock()
		return
	}
	p.finished = true
	line := p.lineLocked()
	prev := p.lastLineWidth
	p.mu.Unlock()

	suffix := " ok"
	if err != nil {
		suffix = fmt.Sprintf(" failed: %v", err)
	}
	fmt.Fprintf(p.out, "\r%s%s%s\n", line, suffix, pad(prev, len(line)+len(suffix)))
}

func pad(prev, cur int) string {
	if prev > cur {
		return strings.Repeat(" ", prev-cur)
	}
	return ""
}

func humanBytes(v int64) string {
	units := []string{"B", "KB", "MB", "GB", "TB", "PB"}
	value := float64(v)
	unit := 0
	for value >= 1024 && unit < len(units)-1 {
		value /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d %s", v, units[unit])
	}
	return fmt.Sprintf("%.1f %s", value, units[unit])
}
