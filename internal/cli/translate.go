package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/internal/translator"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/factory"
	"github.com/nerdneilsfield/go-doc-translator/pkg/providers/stats"
)

// previewWidth 摘要中译文预览的显示宽度
const previewWidth = 60

func newTranslateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "translate <input_file>",
		Short: "翻译一个文档",
		Long: `提取文档文本并逐段翻译，译文写入输出文件。
输出路径默认为 <输入文件名>.translated.txt，使用 "-o -" 输出到标准输出。`,
		Args: cobra.ExactArgs(1),
		RunE: runTranslate,
	}

	cmd.Flags().StringVarP(&sourceLang, "source", "s", "", "源语言标签，例如 por_Latn")
	cmd.Flags().StringVarP(&targetLang, "target", "t", "", "目标语言标签，例如 eng_Latn")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "PDF 最多提取的页数，0 表示全部")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "输出文件路径")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "不显示进度条")

	return cmd
}

func runTranslate(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	defer func() {
		_ = log.Sync()
	}()

	inputPath := args[0]
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("读取输入文件失败: %w", err)
	}

	coordinator, err := translator.NewFromConfig(cfg, log)
	if err != nil {
		return err
	}
	warnUnknownTags(cmd.ErrOrStderr(), coordinator.Languages(), cfg.SourceLang, cfg.TargetLang)

	backendImpl, err := factory.New(log).CreateBackend(cfg)
	if err != nil {
		return err
	}

	bars := newProgressBars(cmd.ErrOrStderr(), noProgress)
	defer bars.stop()

	if err := coordinator.Load(cmd.Context(), backendImpl, bars.onLoad); err != nil {
		return fmt.Errorf("加载翻译后端失败: %w", err)
	}

	var extracted int
	result, err := coordinator.Translate(cmd.Context(), translator.Request{
		FileName:   filepath.Base(inputPath),
		Data:       data,
		SourceLang: cfg.SourceLang,
		TargetLang: cfg.TargetLang,
		MaxPages:   cfg.MaxPages,
	}, translator.Hooks{
		OnExtracted: func(chars int) {
			extracted = chars
			log.Debug("text extracted", zap.Int("chars", chars))
		},
		OnProgress: bars.onSegment,
	})
	if err != nil {
		return fmt.Errorf("翻译失败: %w", err)
	}

	dest := outputPath
	if dest == "" {
		dest = defaultOutputPath(inputPath)
	}

	summaryOut := cmd.OutOrStdout()
	if dest == "-" {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), result.TranslatedText); err != nil {
			return err
		}
		summaryOut = cmd.ErrOrStderr()
	} else {
		if err := os.WriteFile(dest, []byte(result.TranslatedText+"\n"), 0o644); err != nil {
			return fmt.Errorf("写入输出文件失败: %w", err)
		}
		log.Info("translation written", zap.String("output", dest))
	}

	var snap *stats.Snapshot
	if reporter, ok := backendImpl.(stats.Reporter); ok {
		s := reporter.Stats()
		snap = &s
	}
	printSummary(summaryOut, result, extracted, snap, dest)
	return nil
}

// defaultOutputPath 在输入文件旁生成输出路径
func defaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	return strings.TrimSuffix(input, ext) + ".translated.txt"
}

// printSummary 打印彩色的翻译摘要
func printSummary(w io.Writer, result *translator.TranslationResult, chars int, snap *stats.Snapshot, dest string) {
	title := color.New(color.FgGreen, color.Bold)
	label := color.New(color.FgCyan)

	if result.Skipped {
		title.Fprintln(w, "源语言与目标语言相同，已跳过翻译")
	} else {
		title.Fprintln(w, "翻译完成")
	}

	row := func(name, value string) {
		label.Fprintf(w, "  %-8s", name)
		fmt.Fprintln(w, value)
	}
	row("语言", fmt.Sprintf("%s (%s) -> %s (%s)", result.SourceLang, result.SourceCode, result.TargetLang, result.TargetCode))
	row("字符数", fmt.Sprintf("%d", chars))
	row("片段数", fmt.Sprintf("%d", result.Segments))
	if snap != nil && snap.TotalRequests > 0 {
		row("请求数", fmt.Sprintf("%d (失败 %d)", snap.TotalRequests, snap.FailedRequests))
	}
	row("耗时", result.Duration.Round(time.Millisecond).String())
	if dest != "-" {
		row("输出", dest)
	}
	row("预览", preview(result.TranslatedText, previewWidth))
}

// preview 取第一行并按显示宽度截断（中日韩字符占两列）
func preview(text string, width int) string {
	line := strings.TrimSpace(text)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	return runewidth.Truncate(line, width, "...")
}
