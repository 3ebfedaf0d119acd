package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nerdneilsfield/go-doc-translator/pkg/language"
)

func newLanguagesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "列出支持的语言标签",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			langs := language.DefaultTable()
			if cfg.LanguageTable != "" {
				if langs, err = language.LoadTable(cfg.LanguageTable); err != nil {
					return fmt.Errorf("加载语言表失败: %w", err)
				}
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(cmd.OutOrStdout())
			tw.AppendHeader(table.Row{"标签", "接口代码", "名称", "本地名称", "默认"})

			defaults := langs.Defaults()
			for _, lang := range langs.Languages() {
				mark := ""
				switch lang.Tag {
				case cfg.SourceLang:
					mark = "源"
				case cfg.TargetLang:
					mark = "目标"
				}
				tw.AppendRow(table.Row{lang.Tag, lang.Code, lang.Name, lang.NativeLabel, mark})
			}

			tw.AppendFooter(table.Row{"", "", "", "回退语言对", fmt.Sprintf("%s -> %s", defaults.Source, defaults.Target)})
			tw.SetStyle(table.StyleLight)
			tw.Render()
			return nil
		},
	}
}
