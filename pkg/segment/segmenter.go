// Package segment 将长文本切分为适合单次翻译请求的片段
package segment

import (
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
)

// DefaultMaxLength 默认片段最大长度（字符数）
const DefaultMaxLength = 500

// sentencePattern 匹配“非终止符 + 一个或多个终止符”，末尾没有终止符的文本单独成为一个单元
var sentencePattern = regexp2.MustCompile(`[^.!?]*[.!?]+|[^.!?]+`, regexp2.None)

// Segmenter 按句子边界贪心合并文本，超长句子退化为按单词切分
type Segmenter struct {
	maxLength int
}

// New 创建分段器，maxLength <= 0 时使用 DefaultMaxLength
func New(maxLength int) *Segmenter {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Segmenter{maxLength: maxLength}
}

// MaxLength 返回片段最大长度
func (s *Segmenter) MaxLength() int {
	return s.maxLength
}

// Segment 切分文本
func (s *Segmenter) Segment(text string) []string {
	return Split(text, s.maxLength)
}

// Split 将文本切分为有序片段。
//
// 每个片段长度不超过 maxLength，唯一例外是长度超过 maxLength 的单个单词，
// 它会被完整输出。空文本或只有空白的文本返回空切片。
func Split(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	segments := []string{}
	if strings.TrimSpace(text) == "" {
		return segments
	}

	acc := newAccumulator(maxLength)
	for _, unit := range sentenceUnits(text) {
		if runeLen(unit) > maxLength {
			// 超长句子：先刷出已有缓冲，再按单词切分
			segments = acc.flush(segments)

			words := newAccumulator(maxLength)
			for _, word := range strings.Fields(unit) {
				segments = words.add(segments, word)
			}
			segments = words.flush(segments)
			continue
		}
		segments = acc.add(segments, unit)
	}

	return acc.flush(segments)
}

// sentenceUnits 按终止符拆分句子单元，结果已去除首尾空白且不含空单元
func sentenceUnits(text string) []string {
	var units []string

	m, err := sentencePattern.FindStringMatch(text)
	for err == nil && m != nil {
		if unit := strings.TrimSpace(m.String()); unit != "" {
			units = append(units, unit)
		}
		m, err = sentencePattern.FindNextMatch(m)
	}

	if len(units) == 0 {
		// 模式无法匹配时整段文本作为一个单元
		if unit := strings.TrimSpace(text); unit != "" {
			units = append(units, unit)
		}
	}

	return units
}

// accumulator 以单个空格连接单元的贪心缓冲
type accumulator struct {
	maxLength int
	buf       strings.Builder
	size      int
}

func newAccumulator(maxLength int) *accumulator {
	return &accumulator{maxLength: maxLength}
}

// add 追加单元；超出 maxLength 时先刷出当前缓冲
func (a *accumulator) add(out []string, unit string) []string {
	n := runeLen(unit)
	if a.size > 0 && a.size+1+n > a.maxLength {
		out = a.flush(out)
	}

	if a.size > 0 {
		a.buf.WriteByte(' ')
		a.size++
	}
	a.buf.WriteString(unit)
	a.size += n

	return out
}

// flush 输出当前缓冲，空白缓冲被丢弃
func (a *accumulator) flush(out []string) []string {
	if a.size == 0 {
		return out
	}

	if seg := strings.TrimSpace(a.buf.String()); seg != "" {
		out = append(out, seg)
	}
	a.buf.Reset()
	a.size = 0

	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
