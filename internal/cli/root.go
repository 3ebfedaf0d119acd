package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-doc-translator/internal/config"
	"github.com/nerdneilsfield/go-doc-translator/internal/logger"
	"github.com/nerdneilsfield/go-doc-translator/pkg/language"
)

var (
	// 命令行标志变量
	cfgFile     string
	debugMode   bool
	verboseMode bool // 控制台友好的日志

	sourceLang string
	targetLang string
	backend    string
	endpoint   string
	apiKey     string
	maxPages   int

	outputPath string
	noProgress bool // 关闭进度条
	listenAddr string
	amqpURL    string
)

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "doctranslator",
		Short: "文档翻译工具：提取 PDF/DOCX 等文档的文本并分段调用远程翻译接口",
		Long: `文档翻译工具会提取文档中的文本，按句子切分为适合翻译接口的片段，
逐段调用远程翻译服务（遇到限流时自动退避重试），最后按原顺序拼接译文。

支持的文档格式: PDF, DOCX, HTML, Markdown, 纯文本

支持的翻译后端:
  - deepl: DeepL 官方接口（免费密钥以 :fx 结尾）
  - deeplx: 自建 DeepLX 服务
  - google: Google Cloud Translation v2
  - libretranslate: LibreTranslate (开源，可自建)
  - mymemory: MyMemory 免费接口
  - openai: OpenAI 兼容的大语言模型接口（包括 Ollama）
  - raw: 原样返回（用于调试）`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径（默认查找 $HOME/.doctranslator.yaml 与 ./.doctranslator.yaml）")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "启用调试日志")
	rootCmd.PersistentFlags().BoolVar(&verboseMode, "verbose", false, "使用控制台格式输出日志")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "翻译后端: "+strings.Join(config.SupportedBackends, ", "))
	rootCmd.PersistentFlags().StringVar(&endpoint, "endpoint", "", "翻译接口地址")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "翻译接口密钥")

	rootCmd.AddCommand(
		newTranslateCommand(),
		newLanguagesCommand(),
		newServeCommand(),
		newWorkerCommand(),
		newConfigCommand(),
	)

	return rootCmd
}

// loadConfig 加载配置并应用命令行覆盖
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("debug") {
		cfg.Debug = debugMode
	}
	if flags.Changed("verbose") {
		cfg.Verbose = verboseMode
	}
	if flags.Changed("backend") {
		cfg.Backend = backend
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = endpoint
	}
	if flags.Changed("api-key") {
		cfg.APIKey = apiKey
	}
	if flags.Changed("source") {
		cfg.SourceLang = sourceLang
	}
	if flags.Changed("target") {
		cfg.TargetLang = targetLang
	}
	if flags.Changed("max-pages") {
		cfg.MaxPages = maxPages
	}
	if flags.Changed("listen") {
		cfg.ListenAddr = listenAddr
	}
	if flags.Changed("amqp-url") {
		cfg.AMQPURL = amqpURL
	}

	// 命令行覆盖后重新校验
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup 加载配置并创建日志
func setup(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger.NewLoggerWithVerbose(cfg.Debug, cfg.Verbose), nil
}

// warnUnknownTags 对语言表中不存在的标签给出提示，翻译仍会使用默认语言对
func warnUnknownTags(w io.Writer, table *language.Table, tags ...string) {
	warn := color.New(color.FgYellow)
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		if _, ok := table.Lookup(tag); ok {
			continue
		}

		warn.Fprintf(w, "未知的语言标签 %q，将回退到默认语言对", tag)
		if suggestions := table.Suggest(tag); len(suggestions) > 0 {
			if len(suggestions) > 3 {
				suggestions = suggestions[:3]
			}
			warn.Fprintf(w, "；你是不是想输入: %s", strings.Join(suggestions, ", "))
		}
		fmt.Fprintln(w)
	}
}
