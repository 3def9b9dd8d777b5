package cleaner

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// policyNoise lists elements that never carry policy wording.
var policyNoise = []string{"img", "picture", "svg", "video", "audio", "iframe", "form", "button", "nav"}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// newPolicyConverter creates a goroutine-safe Converter for policy pages.
// Policies often hold retention and data-category tables, so tables are
// kept with minimal padding.
func newPolicyConverter() *converter.Converter {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(
				table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
			),
		),
	)
	for _, tag := range policyNoise {
		conv.Register.TagType(tag, converter.TagTypeRemove, converter.PriorityStandard)
	}
	return conv
}

// policyMarkdown converts a policy fragment and collapses blank-line runs
// left behind by removed elements.
func policyMarkdown(conv *converter.Converter, fragment, sourceURL string) (string, error) {
	md, err := conv.ConvertString(fragment, converter.WithDomain(sourceURL))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(blankRuns.ReplaceAllString(md, "\n\n")), nil
}
