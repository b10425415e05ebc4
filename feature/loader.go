package feature

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// 预处理产物的类型名（JSON 中的 "type" 字段）。
const (
	TypeSequence = "sequence"
	TypeTfidf    = "tfidf"
	TypeZScore   = "zscore"
	TypeMinMax   = "minmax"
	TypeIdentity = "identity"
)

// DefaultMaxLen 序列长度默认值
const DefaultMaxLen = 100

// transformerArtifact 是预处理产物的统一外层结构。
//
//	{"type": "sequence", "word_index": {"good": 1}, "max_len": 100, "oov_token": "<OOV>"}
//	{"type": "tfidf", "vocabulary": {"good": 0}, "idf": [1.2], "sublinear_tf": false}
//	{"type": "zscore", "mean": [...], "std": [...]}
//	{"type": "minmax", "min": [...], "max": [...]}
type transformerArtifact struct {
	Type string `json:"type"`

	WordIndex  map[string]int `json:"word_index"`
	MaxLen     int            `json:"max_len"`
	OOVToken   string         `json:"oov_token"`
	NumWords   int            `json:"num_words"`
	Lower      *bool          `json:"lower"`
	Filters    *string        `json:"filters"`
	Padding    string         `json:"padding"`
	Truncating string         `json:"truncating"`

	Vocabulary  map[string]int `json:"vocabulary"`
	IDF         []float64      `json:"idf"`
	SublinearTF bool           `json:"sublinear_tf"`
	Norm        *string        `json:"norm"`

	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
	Min  []float64 `json:"min"`
	Max  []float64 `json:"max"`
	Dim  int       `json:"dim"`
}

// DecodeTransformer 解析预处理产物。
func DecodeTransformer(data []byte) (Transformer, error) {
	var raw transformerArtifact
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse preprocessor: %w", err)
	}
	switch raw.Type {
	case TypeSequence:
		maxLen := raw.MaxLen
		if maxLen == 0 {
			maxLen = DefaultMaxLen
		}
		opts := []TokenizerOption{
			WithOOVToken(raw.OOVToken),
			WithNumWords(raw.NumWords),
			WithPadding(raw.Padding, raw.Truncating),
		}
		if raw.Lower != nil {
			opts = append(opts, WithLower(*raw.Lower))
		}
		if raw.Filters != nil {
			opts = append(opts, WithFilters(*raw.Filters))
		}
		return NewSequenceTokenizer(raw.WordIndex, maxLen, opts...)
	case TypeTfidf:
		v, err := NewTfidfVectorizer(raw.Vocabulary, raw.IDF)
		if err != nil {
			return nil, err
		}
		v.SublinearTF = raw.SublinearTF
		if raw.Lower != nil {
			v.Lowercase = *raw.Lower
		}
		if raw.Norm != nil {
			if *raw.Norm != "" && *raw.Norm != "l2" {
				return nil, fmt.Errorf("tfidf: unsupported norm %q", *raw.Norm)
			}
			v.Norm = *raw.Norm
		}
		return v, nil
	case TypeZScore:
		return NewZScoreScaler(raw.Mean, raw.Std)
	case TypeMinMax:
		return NewMinMaxScaler(raw.Min, raw.Max)
	case TypeIdentity:
		return Identity{Dim: raw.Dim}, nil
	case "":
		return nil, fmt.Errorf("preprocessor type is required")
	default:
		return nil, fmt.Errorf("unsupported preprocessor type: %s", raw.Type)
	}
}

// TransformerLoader 预处理产物加载器接口
// source 是数据源标识（文件路径、URL 等）
type TransformerLoader interface {
	Load(ctx context.Context, source string) (Transformer, error)
}

// FileLoader 本地文件加载器
type FileLoader struct{}

func (FileLoader) Load(_ context.Context, path string) (Transformer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := DecodeTransformer(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// HTTPLoader 从 HTTP 接口加载预处理产物
type HTTPLoader struct {
	Client *http.Client
}

// NewHTTPLoader 创建 HTTP 加载器，timeout 为 0 时默认 10s
func NewHTTPLoader(timeout time.Duration) *HTTPLoader {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPLoader{Client: &http.Client{Timeout: timeout}}
}

func (l *HTTPLoader) Load(ctx context.Context, url string) (Transformer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch preprocessor: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read preprocessor: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch preprocessor: status=%d, body=%s", resp.StatusCode, string(data))
	}
	return DecodeTransformer(data)
}

// LoadTransformer 按 source 前缀选择加载器：http(s):// 走 HTTP，其余视为本地文件。
func LoadTransformer(ctx context.Context, source string) (Transformer, error) {
	var loader TransformerLoader = FileLoader{}
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		loader = NewHTTPLoader(0)
	}
	return loader.Load(ctx, source)
}

var (
	_ TransformerLoader = FileLoader{}
	_ TransformerLoader = (*HTTPLoader)(nil)
)
