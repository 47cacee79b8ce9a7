package internal

import (
	"fmt"
	"os"
	"time"

	"github.com/nguyengg/xyarc/util"
	"github.com/schollz/progressbar/v3"
)

// NewBytesBar is a variant of progressbar.DefaultBytes with higher progressbar.OptionThrottle and a description that
// names the archive being processed.
//
// Pass -1 as maxBytes if the total is unknown, for example when some entries don't declare their size.
func NewBytesBar(maxBytes int64, verb, name string, options ...progressbar.Option) *progressbar.ProgressBar {
	description := fmt.Sprintf(`%s "%s"`, verb, util.TruncateRightWithSuffix(name, 30, "..."))

	return progressbar.NewOptions64(maxBytes,
		append([]progressbar.Option{
			progressbar.OptionSetDescription(description),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(10),
			progressbar.OptionThrottle(1 * time.Second),
			progressbar.OptionShowCount(),
			progressbar.OptionOnCompletion(func() {
				_, _ = fmt.Fprint(os.Stderr, "\n")
			}),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetRenderBlankState(true)},
			options...)...)
}
