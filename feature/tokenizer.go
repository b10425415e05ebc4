package feature

import (
	"fmt"
	"strings"

	"github.com/rushteam/modelduel/core"
)

// DefaultFilters 是分词前被替换为空格的字符，与 Keras Tokenizer 的默认 filters 一致。
const DefaultFilters = "!\"#$%&()*+,-./:;<=>?@[\\]^_`{|}~\t\n"

// 序列补齐/截断方向。
const (
	Pre  = "pre"
	Post = "post"
)

// SequenceTokenizer 把文本转换为定长的词下标序列。
//
// 处理流程（构造后固定，不可按调用修改）：
//  1. 小写化（Lower）并把 Filters 中的字符替换为空格
//  2. 按空白切词，查 WordIndex 得到下标（下标 0 保留给 padding）
//  3. 未登录词：配置了 OOVToken 时映射到其下标，否则丢弃
//  4. 按 MaxLen 截断（Truncating）并用 0 补齐（Padding）
type SequenceTokenizer struct {
	WordIndex  map[string]int
	OOVToken   string
	NumWords   int // >0 时只保留下标小于 NumWords 的词
	MaxLen     int
	Lower      bool
	Filters    string
	Padding    string // "pre" / "post"
	Truncating string // "pre" / "post"

	oovIndex int
	replacer *strings.Replacer
}

// NewSequenceTokenizer 创建分词器，padding/truncating 默认均为 post。
func NewSequenceTokenizer(wordIndex map[string]int, maxLen int, opts ...TokenizerOption) (*SequenceTokenizer, error) {
	if len(wordIndex) == 0 {
		return nil, fmt.Errorf("tokenizer: empty word index")
	}
	if maxLen <= 0 {
		return nil, fmt.Errorf("tokenizer: max_len must be positive, got %d", maxLen)
	}
	t := &SequenceTokenizer{
		WordIndex:  wordIndex,
		MaxLen:     maxLen,
		Lower:      true,
		Filters:    DefaultFilters,
		Padding:    Post,
		Truncating: Post,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.Padding != Pre && t.Padding != Post {
		return nil, fmt.Errorf("tokenizer: invalid padding %q", t.Padding)
	}
	if t.Truncating != Pre && t.Truncating != Post {
		return nil, fmt.Errorf("tokenizer: invalid truncating %q", t.Truncating)
	}
	if t.OOVToken != "" {
		idx, ok := wordIndex[t.OOVToken]
		if !ok {
			return nil, fmt.Errorf("tokenizer: oov token %q not in word index", t.OOVToken)
		}
		t.oovIndex = idx
	}
	pairs := make([]string, 0, len(t.Filters)*2)
	for _, r := range t.Filters {
		pairs = append(pairs, string(r), " ")
	}
	t.replacer = strings.NewReplacer(pairs...)
	return t, nil
}

// TokenizerOption 分词器配置选项
type TokenizerOption func(*SequenceTokenizer)

// WithOOVToken 设置未登录词标记（必须在 WordIndex 中）
func WithOOVToken(token string) TokenizerOption {
	return func(t *SequenceTokenizer) { t.OOVToken = token }
}

// WithNumWords 只保留最常见的 n-1 个词
func WithNumWords(n int) TokenizerOption {
	return func(t *SequenceTokenizer) { t.NumWords = n }
}

// WithLower 是否小写化
func WithLower(lower bool) TokenizerOption {
	return func(t *SequenceTokenizer) { t.Lower = lower }
}

// WithFilters 设置过滤字符
func WithFilters(filters string) TokenizerOption {
	return func(t *SequenceTokenizer) { t.Filters = filters }
}

// WithPadding 设置补齐与截断方向
func WithPadding(padding, truncating string) TokenizerOption {
	return func(t *SequenceTokenizer) {
		if padding != "" {
			t.Padding = padding
		}
		if truncating != "" {
			t.Truncating = truncating
		}
	}
}

func (t *SequenceTokenizer) Name() string           { return "sequence" }
func (t *SequenceTokenizer) InputShape() core.Shape { return core.ShapeText }

// Words 返回过滤、切分后的词。
func (t *SequenceTokenizer) Words(text string) []string {
	if t.Lower {
		text = strings.ToLower(text)
	}
	return strings.Fields(t.replacer.Replace(text))
}

// Sequence 返回未补齐的词下标序列。
func (t *SequenceTokenizer) Sequence(text string) []int {
	words := t.Words(text)
	seq := make([]int, 0, len(words))
	for _, w := range words {
		idx, ok := t.WordIndex[w]
		switch {
		case ok && (t.NumWords <= 0 || idx < t.NumWords):
			seq = append(seq, idx)
		case t.OOVToken != "":
			seq = append(seq, t.oovIndex)
		}
	}
	return seq
}

// Transform 输出长度恒为 MaxLen 的序列。
func (t *SequenceTokenizer) Transform(in core.Input) ([]float64, error) {
	if err := expectShape(t, in); err != nil {
		return nil, err
	}
	return t.pad(t.Sequence(in.Text)), nil
}

func (t *SequenceTokenizer) pad(seq []int) []float64 {
	if len(seq) > t.MaxLen {
		if t.Truncating == Post {
			seq = seq[:t.MaxLen]
		} else {
			seq = seq[len(seq)-t.MaxLen:]
		}
	}
	out := make([]float64, t.MaxLen)
	offset := 0
	if t.Padding == Pre {
		offset = t.MaxLen - len(seq)
	}
	for i, id := range seq {
		out[offset+i] = float64(id)
	}
	return out
}

var _ Transformer = (*SequenceTokenizer)(nil)
