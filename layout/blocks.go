package layout

import (
	"strings"

	"github.com/zuccha/dnd-portal-sub000/richtext"
)

// BlockKind 区分普通段落与标题。
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
)

// headingMarker 出现在行首时该行为小节标题。
const headingMarker = "#"

// Block 是一段连续排版的文本。Start/End 为源字符串中的字节区间，
// 标题的 Start 包含行首的标记。
type Block struct {
	Kind    BlockKind      `json:"kind"`
	Section bool           `json:"section,omitempty"` // 与前一段之间使用 sectionGap
	Runs    []richtext.Run `json:"runs"`
	Start   int            `json:"start"`
	End     int            `json:"end"`
}

// SplitBlocks 按行切分文本：每行一个段落，空行开启新小节，
// 以 # 开头的行是标题并且同样开启新小节。空段落会被跳过。
func SplitBlocks(text string, patterns []richtext.Pattern) []Block {
	var blocks []Block
	pendingSection := false
	offset := 0
	for offset <= len(text) {
		end := strings.IndexByte(text[offset:], '\n')
		if end < 0 {
			end = len(text)
		} else {
			end += offset
		}
		lineStart, lineEnd := offset, end
		if lineEnd > lineStart && text[lineEnd-1] == '\r' {
			lineEnd--
		}
		line := text[lineStart:lineEnd]
		offset = end + 1

		if strings.TrimSpace(line) == "" {
			if len(blocks) > 0 {
				pendingSection = true
			}
			continue
		}

		block := Block{Kind: BlockParagraph, Start: lineStart, End: lineEnd, Section: pendingSection}
		contentStart := lineStart
		if strings.HasPrefix(line, headingMarker) {
			block.Kind = BlockHeading
			block.Section = len(blocks) > 0
			trimmed := strings.TrimLeft(line, headingMarker)
			contentStart = lineEnd - len(trimmed)
			if strings.HasPrefix(trimmed, " ") {
				contentStart++
			}
		}
		pendingSection = false
		if contentStart >= lineEnd || strings.TrimSpace(text[contentStart:lineEnd]) == "" {
			continue
		}
		block.Runs = richtext.Shift(richtext.Parse(text[contentStart:lineEnd], patterns), contentStart)
		if len(block.Runs) == 0 {
			continue
		}
		// 第一个 run 的源区间从行首算起，使标题标记归属于该段
		block.Runs[0].SrcStart = lineStart
		blocks = append(blocks, block)
	}
	return blocks
}

// restFrom 返回从 runs[ri] 的第 k 个字节开始的剩余段落。
func (b Block) restFrom(ri, k int) Block {
	runs := make([]richtext.Run, 0, len(b.Runs)-ri)
	first := b.Runs[ri]
	if k > 0 {
		first.Text = first.Text[k:]
		first.Start += k
		first.SrcStart = first.Start
	}
	runs = append(runs, first)
	runs = append(runs, b.Runs[ri+1:]...)
	return Block{
		Kind:  b.Kind,
		Runs:  runs,
		Start: first.SrcStart,
		End:   b.End,
	}
}
