package cli

import (
	"io"
	"sync"

	"github.com/pterm/pterm"
)

// progressBars 模型加载与分段翻译的进度条，disabled 时所有方法为空操作
type progressBars struct {
	mu       sync.Mutex
	writer   io.Writer
	disabled bool

	load    *pterm.ProgressbarPrinter
	segment *pterm.ProgressbarPrinter
}

func newProgressBars(w io.Writer, disabled bool) *progressBars {
	return &progressBars{writer: w, disabled: disabled}
}

// onLoad 加载进度回调（0-100）
func (p *progressBars) onLoad(percent int) {
	if p.disabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.load == nil {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(100).
			WithTitle("加载翻译后端").
			WithWriter(p.writer).
			Start()
		if err != nil {
			p.disabled = true
			return
		}
		p.load = bar
	}

	if delta := percent - p.load.Current; delta > 0 {
		p.load.Add(delta)
	}
	if percent >= 100 && p.load.IsActive {
		_, _ = p.load.Stop()
	}
}

// onSegment 分段翻译进度回调
func (p *progressBars) onSegment(current, total int) {
	if p.disabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.segment == nil {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("翻译进度").
			WithWriter(p.writer).
			Start()
		if err != nil {
			p.disabled = true
			return
		}
		p.segment = bar
	}

	if delta := current - p.segment.Current; delta > 0 {
		p.segment.Add(delta)
	}
	if current >= total && p.segment.IsActive {
		_, _ = p.segment.Stop()
	}
}

// stop 失败时停止仍在运行的进度条
func (p *progressBars) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, bar := range []*pterm.ProgressbarPrinter{p.load, p.segment} {
		if bar != nil && bar.IsActive {
			_, _ = bar.Stop()
		}
	}
}
