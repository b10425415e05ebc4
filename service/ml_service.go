// Package service 提供远程模型服务的 HTTP 客户端，实现 core.MLService。
//
// 托管在 TensorFlow Serving 或 KServe 上的模型（例如 Keras 评分模型）通过
// model.RemoteClassifier / model.RemoteRegressor 接入对比引擎。
//
// 使用示例：
//
//	svc, err := service.NewMLService(&service.ServiceConfig{
//	    Type:      service.ServiceTypeTFServing,
//	    Endpoint:  "http://localhost:8501",
//	    ModelName: "review_rater",
//	})
//	m := model.NewRemoteClassifier("review_rater", svc, 5)
package service

import (
	"fmt"
	"net/http"
)

// ServiceType 服务类型
type ServiceType string

const (
	ServiceTypeTFServing ServiceType = "tf_serving" // TensorFlow Serving REST
	ServiceTypeKServe    ServiceType = "kserve"     // KServe V1/V2
)

// ServiceConfig 服务配置
type ServiceConfig struct {
	// Type 服务类型
	Type ServiceType `yaml:"type" json:"type"`

	// Endpoint 服务根地址，如 "http://localhost:8501"
	Endpoint string `yaml:"endpoint" json:"endpoint"`

	// ModelName 模型名称
	ModelName string `yaml:"model" json:"model"`

	// ModelVersion 模型版本（可选，为空则使用最新版本）
	ModelVersion string `yaml:"version" json:"version,omitempty"`

	// Protocol KServe 协议版本："v1" 或 "v2"
	Protocol string `yaml:"protocol" json:"protocol,omitempty"`

	// Timeout 超时时间（秒）
	Timeout int `yaml:"timeout" json:"timeout,omitempty"`

	// Auth 认证信息（可选）
	Auth *AuthConfig `yaml:"auth" json:"auth,omitempty"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	Type     string `yaml:"type" json:"type"` // "basic", "bearer", "api_key"
	Username string `yaml:"username" json:"username,omitempty"`
	Password string `yaml:"password" json:"-"`
	Token    string `yaml:"token" json:"-"`
	APIKey   string `yaml:"api_key" json:"-"`
}

// apply 把认证信息写入请求头。
func (a *AuthConfig) apply(req *http.Request) {
	if a == nil {
		return
	}
	switch a.Type {
	case "basic":
		req.SetBasicAuth(a.Username, a.Password)
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+a.Token)
	case "api_key":
		req.Header.Set("X-API-Key", a.APIKey)
	}
}

// toOutputs 把 predictions 数组转成每个实例一个输出向量。
// 标量预测（回归模型）转成长度为 1 的向量。
func toOutputs(predictions []any) ([][]float64, error) {
	outputs := make([][]float64, 0, len(predictions))
	for i, pred := range predictions {
		switch v := pred.(type) {
		case float64:
			outputs = append(outputs, []float64{v})
		case []any:
			row := make([]float64, 0, len(v))
			for _, x := range v {
				f, ok := x.(float64)
				if !ok {
					return nil, fmt.Errorf("prediction %d: unexpected element type %T", i, x)
				}
				row = append(row, f)
			}
			outputs = append(outputs, row)
		default:
			return nil, fmt.Errorf("prediction %d: unexpected type %T", i, pred)
		}
	}
	return outputs, nil
}
