// Package language 维护内部语言标签（语言+书写系统）到远程接口语言代码的映射
package language

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lithammer/fuzzysearch/fuzzy"
	xlanguage "golang.org/x/text/language"
)

// Language 支持的语言
type Language struct {
	Tag         string `json:"code" toml:"tag"`                   // 内部标签，如 por_Latn
	Code        string `json:"external_code" toml:"code"`         // 远程接口语言代码，如 pt
	Name        string `json:"name" toml:"name"`                  // 英文名称
	NativeLabel string `json:"native_label" toml:"native_label"` // 本地名称
}

// Pair 解析后的外部语言代码对
type Pair struct {
	Source string
	Target string
}

// Same 源语言与目标语言解析为同一代码
func (p Pair) Same() bool {
	return p.Source == p.Target
}

// DefaultPair 标签缺失时使用的默认语言对
var DefaultPair = Pair{Source: "pt", Target: "en"}

// defaultLanguages 内置语言表
var defaultLanguages = []Language{
	{Tag: "por_Latn", Code: "pt", Name: "Portuguese", NativeLabel: "Português"},
	{Tag: "eng_Latn", Code: "en", Name: "English", NativeLabel: "English"},
	{Tag: "spa_Latn", Code: "es", Name: "Spanish", NativeLabel: "Español"},
	{Tag: "fra_Latn", Code: "fr", Name: "French", NativeLabel: "Français"},
	{Tag: "deu_Latn", Code: "de", Name: "German", NativeLabel: "Deutsch"},
	{Tag: "ita_Latn", Code: "it", Name: "Italian", NativeLabel: "Italiano"},
	{Tag: "rus_Cyrl", Code: "ru", Name: "Russian", NativeLabel: "Русский"},
	{Tag: "jpn_Jpan", Code: "ja", Name: "Japanese", NativeLabel: "日本語"},
	{Tag: "zho_Hans", Code: "zh", Name: "Chinese", NativeLabel: "简体中文"},
	{Tag: "ara_Arab", Code: "ar", Name: "Arabic", NativeLabel: "العربية"},
}

// Table 语言映射表，构建后只读，可并发使用
type Table struct {
	languages []Language
	byTag     map[string]Language
	defaults  Pair
}

// DefaultTable 返回内置语言表
func DefaultTable() *Table {
	t, err := NewTable(defaultLanguages, DefaultPair)
	if err != nil {
		panic("invalid built-in language table: " + err.Error())
	}
	return t
}

// NewTable 创建语言表，外部代码必须是合法的 BCP 47 标签
func NewTable(languages []Language, defaults Pair) (*Table, error) {
	t := &Table{
		languages: make([]Language, 0, len(languages)),
		byTag:     make(map[string]Language, len(languages)),
		defaults:  defaults,
	}

	for _, lang := range languages {
		if lang.Tag == "" || lang.Code == "" {
			return nil, fmt.Errorf("language entry requires tag and code: %+v", lang)
		}
		if _, err := xlanguage.Parse(lang.Code); err != nil {
			return nil, fmt.Errorf("invalid external code %q for %s: %w", lang.Code, lang.Tag, err)
		}
		if _, exists := t.byTag[lang.Tag]; exists {
			return nil, fmt.Errorf("duplicate language tag %s", lang.Tag)
		}
		t.byTag[lang.Tag] = lang
		t.languages = append(t.languages, lang)
	}

	if defaults.Source == "" || defaults.Target == "" {
		return nil, fmt.Errorf("default language pair must not be empty")
	}

	return t, nil
}

// Resolve 将内部标签解析为外部代码，未知标签回退到默认语言对
func (t *Table) Resolve(sourceTag, targetTag string) Pair {
	pair := t.defaults
	if lang, ok := t.byTag[sourceTag]; ok {
		pair.Source = lang.Code
	}
	if lang, ok := t.byTag[targetTag]; ok {
		pair.Target = lang.Code
	}
	return pair
}

// Lookup 按内部标签查找语言
func (t *Table) Lookup(tag string) (Language, bool) {
	lang, ok := t.byTag[tag]
	return lang, ok
}

// Languages 返回表中的语言（保持定义顺序）
func (t *Table) Languages() []Language {
	out := make([]Language, len(t.languages))
	copy(out, t.languages)
	return out
}

// Defaults 返回默认语言对
func (t *Table) Defaults() Pair {
	return t.defaults
}

// Suggest 为未知标签给出相近的候选，按匹配距离排序
func (t *Table) Suggest(query string) []string {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	candidates := make(map[string]string, len(t.languages)*3)
	targets := make([]string, 0, len(t.languages)*3)
	for _, lang := range t.languages {
		for _, key := range []string{lang.Tag, lang.Name, lang.NativeLabel} {
			if key == "" {
				continue
			}
			candidates[key] = lang.Tag
			targets = append(targets, key)
		}
	}

	seen := make(map[string]bool)
	var tags []string

	// 直接输入外部代码（如 "pt"）时优先返回对应标签
	for _, lang := range t.languages {
		if strings.EqualFold(lang.Code, query) {
			seen[lang.Tag] = true
			tags = append(tags, lang.Tag)
		}
	}

	ranks := fuzzy.RankFindFold(query, targets)
	sort.Stable(ranks)

	for _, r := range ranks {
		tag := candidates[r.Target]
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}

	return tags
}

// tableFile 语言表覆盖文件
type tableFile struct {
	DefaultSource string     `toml:"default_source"`
	DefaultTarget string     `toml:"default_target"`
	Replace       bool       `toml:"replace"`
	Languages     []Language `toml:"languages"`
}

// LoadTable 从 TOML 文件加载语言表。
//
// 默认在内置表基础上追加或覆盖条目；replace = true 时完全替换内置表。
func LoadTable(path string) (*Table, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("language table file not found: %s", path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read language table: %w", err)
	}

	var file tableFile
	if err := toml.Unmarshal(content, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal language table: %w", err)
	}

	defaults := DefaultPair
	if file.DefaultSource != "" {
		defaults.Source = file.DefaultSource
	}
	if file.DefaultTarget != "" {
		defaults.Target = file.DefaultTarget
	}

	if file.Replace {
		return NewTable(file.Languages, defaults)
	}

	merged := make([]Language, 0, len(defaultLanguages)+len(file.Languages))
	overrides := make(map[string]Language, len(file.Languages))
	for _, lang := range file.Languages {
		overrides[lang.Tag] = lang
	}
	for _, lang := range defaultLanguages {
		if o, ok := overrides[lang.Tag]; ok {
			lang = o
			delete(overrides, lang.Tag)
		}
		merged = append(merged, lang)
	}
	for _, lang := range file.Languages {
		if _, ok := overrides[lang.Tag]; ok {
			merged = append(merged, lang)
		}
	}

	return NewTable(merged, defaults)
}
