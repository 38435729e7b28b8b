// Package dsl 解析卡牌模板 DSL。
//
// 模板由一个 layout 头和一个花括号块组成，块内可以是赋值（key: value）、
// 命令（name 参数... { 子块 }）或裸字符串：
//
//	layout Creature v1 {
//	  size 2.48in 3.48in
//	  text body { fontSize: 9pt; "<description>" }
//	}
package dsl

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var templateLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Space", Pattern: `[ \t\r]+`},
	{Name: "EOL", Pattern: `\n+`},
	{Name: "Comment", Pattern: `//[^\n]*|/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
	{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
	{Name: "HashComment", Pattern: `#[^\n]*`},
	{Name: "Number", Pattern: `(?:\d+\.\d+|\.\d+|\d+)(?:pt|mm|cm|in|px|x)?`},
	{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
	{Name: "Punct", Pattern: `[][(),.=+\-*/%<>!?;:]`},
	{Name: "Open", Pattern: `{`},
	{Name: "Close", Pattern: `}`},
})

type tokenKinds struct {
	names map[lexer.TokenType]string

	eol, open, close, punct, str lexer.TokenType
}

// kinds 保存解析器需要区分的 token 类型。
var kinds = func() tokenKinds {
	symbols := templateLexer.Symbols()
	k := tokenKinds{names: make(map[lexer.TokenType]string, len(symbols))}
	for name, tt := range symbols {
		k.names[tt] = name
	}
	k.eol, k.open, k.close = symbols["EOL"], symbols["Open"], symbols["Close"]
	k.punct, k.str = symbols["Punct"], symbols["String"]
	return k
}()

var templateParser = participle.MustBuild[Document](
	participle.Lexer(templateLexer),
	participle.Elide("Space", "Comment", "HashComment"),
)

// Parse 从 r 读取并解析模板。
func Parse(r io.Reader) (*Document, error) {
	return templateParser.Parse("", r)
}

// ParseString 解析字符串形式的模板。
func ParseString(input string) (*Document, error) {
	return templateParser.ParseString("", input)
}

// Document 是模板的根节点。
type Document struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Name    string         `parser:"EOL* 'layout' @Ident"`
	Version string         `parser:"@Ident"`
	Body    *Block         `parser:"@@ EOL*"`
}

// Commands 返回顶层名为 name 的命令。
func (d *Document) Commands(name string) []*Command {
	if d == nil {
		return nil
	}
	return d.Body.Commands(name)
}

// Block 是花括号包围的语句列表，语句之间用换行或分号分隔。
type Block struct {
	Statements []*Statement `parser:"'{' EOL* ( @@ ( ';' | EOL )* )* '}'"`
}

// Statement 三选一：赋值、命令或裸字符串。
type Statement struct {
	Assignment *Assignment    `parser:"  @@"`
	Command    *Command       `parser:"| @@"`
	Text       *StringLiteral `parser:"| @String"`
}

// Assignment 形如 key: value。
type Assignment struct {
	Key   string `parser:"@Ident"`
	Value *Value `parser:"':' EOL* @@"`
}

// Command 描述元素或一组设置，例如 `size 2.48in 3.48in` 或 `text body { ... }`。
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Arg         `parser:"@@*"`
	Block *Block         `parser:"( EOL* @@ )?"`
}

// Commands 返回块内名为 name 的命令，name 为空时返回全部命令。
func (b *Block) Commands(name string) []*Command {
	if b == nil {
		return nil
	}
	var out []*Command
	for _, st := range b.Statements {
		if cmd := st.Command; cmd != nil && (name == "" || cmd.Name == name) {
			out = append(out, cmd)
		}
	}
	return out
}

// Attrs 汇总块内的赋值。key 经过 NormalizeKey 处理，
// fontSize、font-size 与 font_size 视为同一属性；重复赋值以最后一次为准。
func (b *Block) Attrs() map[string]string {
	attrs := map[string]string{}
	if b == nil {
		return attrs
	}
	for _, st := range b.Statements {
		if a := st.Assignment; a != nil {
			attrs[NormalizeKey(a.Key)] = a.Value.String()
		}
	}
	return attrs
}

// Text 依次拼接块内的裸字符串。
func (b *Block) Text() string {
	if b == nil {
		return ""
	}
	var sb strings.Builder
	for _, st := range b.Statements {
		if st.Text != nil {
			sb.WriteString(string(*st.Text))
		}
	}
	return sb.String()
}

// Arg 返回第 i 个参数的值，越界时返回空串。
func (c *Command) Arg(i int) string {
	if c == nil || i < 0 || i >= len(c.Args) {
		return ""
	}
	return c.Args[i].Value
}

var keyReplacer = strings.NewReplacer("-", "", "_", "")

// NormalizeKey 转小写并去掉 '-' 与 '_'。
func NormalizeKey(key string) string {
	return keyReplacer.Replace(strings.ToLower(key))
}

// Value 是赋值右侧的值。无法归入单个 token 的值（如 -0.05in）
// 以原始 token 序列保存在 Tokens 中。
type Value struct {
	Str    *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Tokens *RawTokens     `parser:"| @@"`
}

// String 把值还原为文本。
func (v *Value) String() string {
	switch {
	case v == nil:
		return ""
	case v.Str != nil:
		return string(*v.Str)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Tokens != nil:
		return v.Tokens.String()
	}
	return ""
}

// Arg 是命令参数，保留 token 类型名与原文。
type Arg struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse 实现 participle.Parseable：参数在换行、分号或花括号处结束。
func (a *Arg) Parse(lex *lexer.PeekingLexer) error {
	if ends(lex.Peek(), false) {
		return participle.NextMatch
	}
	arg, err := take(lex)
	if err != nil {
		return err
	}
	*a = arg
	return nil
}

// RawTokens 读取到语句末尾的 token。括号内的逗号与分号不视为结束。
type RawTokens struct {
	Parts []Arg
}

// Parse 实现 participle.Parseable。
func (r *RawTokens) Parse(lex *lexer.PeekingLexer) error {
	depth := 0
	for depth > 0 || !ends(lex.Peek(), true) {
		if lex.Peek().EOF() {
			break
		}
		arg, err := take(lex)
		if err != nil {
			return err
		}
		switch arg.Raw {
		case "(", "[":
			depth++
		case ")", "]":
			depth = max(depth-1, 0)
		}
		r.Parts = append(r.Parts, arg)
	}
	if len(r.Parts) == 0 {
		return participle.NextMatch
	}
	return nil
}

func (r *RawTokens) String() string {
	var sb strings.Builder
	for _, p := range r.Parts {
		sb.WriteString(p.Value)
	}
	return sb.String()
}

// StringLiteral 在捕获时去掉引号并处理转义。
type StringLiteral string

// Capture 实现 participle.Capture。
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return errors.New("字符串字面量为空")
	}
	text, err := strconv.Unquote(values[0])
	if err != nil {
		return fmt.Errorf("字符串 %s 无效: %w", values[0], err)
	}
	*s = StringLiteral(text)
	return nil
}

// ends 判断 tok 是否结束当前参数或值；comma 为 true 时逗号也算结束。
func ends(tok *lexer.Token, comma bool) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tok.Type {
	case kinds.eol, kinds.open, kinds.close:
		return true
	case kinds.punct:
		return tok.Value == ";" || (comma && tok.Value == ",")
	}
	return false
}

func take(lex *lexer.PeekingLexer) (Arg, error) {
	tok := lex.Next()
	if tok.EOF() {
		return Arg{}, participle.NextMatch
	}
	name, ok := kinds.names[tok.Type]
	if !ok {
		name = strconv.Itoa(int(tok.Type))
	}
	arg := Arg{Type: name, Value: tok.Value, Raw: tok.Value, Pos: tok.Pos}
	if tok.Type == kinds.str {
		text, err := strconv.Unquote(tok.Value)
		if err != nil {
			return Arg{}, fmt.Errorf("%s: 字符串 %s 无效: %w", tok.Pos, tok.Value, err)
		}
		arg.Value = text
	}
	return arg, nil
}
