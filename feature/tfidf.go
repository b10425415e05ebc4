package feature

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/rushteam/modelduel/core"
)

// defaultTokenPattern 匹配两个及以上 Unicode 字母/数字/下划线组成的词。
var defaultTokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// TfidfVectorizer 把文本转换为固定词表上的 TF-IDF 向量。
//
//	tf    = 词频（SublinearTF 时为 1 + log(tf)）
//	value = tf * IDF[col]（IDF 为空时只用 tf）
//	最后按 L2 范数归一化（Norm == "l2"）
type TfidfVectorizer struct {
	Vocabulary  map[string]int // 词 -> 列下标
	IDF         []float64      // 可选，长度等于向量维度
	Lowercase   bool
	SublinearTF bool
	Norm        string // "l2" 或 ""

	dim int
}

// NewTfidfVectorizer 创建向量化器，校验词表下标与 IDF 长度。
func NewTfidfVectorizer(vocab map[string]int, idf []float64) (*TfidfVectorizer, error) {
	if len(vocab) == 0 {
		return nil, fmt.Errorf("tfidf: empty vocabulary")
	}
	dim := 0
	for term, col := range vocab {
		if col < 0 {
			return nil, fmt.Errorf("tfidf: negative column for %q", term)
		}
		if col+1 > dim {
			dim = col + 1
		}
	}
	if len(idf) != 0 && len(idf) != dim {
		return nil, fmt.Errorf("tfidf: idf size %d != vocabulary size %d", len(idf), dim)
	}
	return &TfidfVectorizer{
		Vocabulary: vocab,
		IDF:        idf,
		Lowercase:  true,
		Norm:       "l2",
		dim:        dim,
	}, nil
}

func (v *TfidfVectorizer) Name() string           { return "tfidf" }
func (v *TfidfVectorizer) InputShape() core.Shape { return core.ShapeText }
func (v *TfidfVectorizer) Dim() int               { return v.dim }

func (v *TfidfVectorizer) Transform(in core.Input) ([]float64, error) {
	if err := expectShape(v, in); err != nil {
		return nil, err
	}
	text := in.Text
	if v.Lowercase {
		text = strings.ToLower(text)
	}
	out := make([]float64, v.dim)
	for _, tok := range defaultTokenPattern.FindAllString(text, -1) {
		if col, ok := v.Vocabulary[tok]; ok {
			out[col]++
		}
	}
	var norm float64
	for i, tf := range out {
		if tf == 0 {
			continue
		}
		if v.SublinearTF {
			tf = 1 + math.Log(tf)
		}
		if len(v.IDF) > 0 {
			tf *= v.IDF[i]
		}
		out[i] = tf
		norm += tf * tf
	}
	if v.Norm == "l2" && norm > 0 {
		norm = math.Sqrt(norm)
		for i := range out {
			out[i] /= norm
		}
	}
	return out, nil
}

var _ Transformer = (*TfidfVectorizer)(nil)
