package handler

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
)

const (
	// WarmupSource 定时预热事件的来源标识
	WarmupSource = "warmup"

	// WarmupDelay 预热调用的停留时间，使并发的实例彼此重叠
	WarmupDelay = 75 * time.Millisecond

	// DefaultMaxConcurrency 单次预热最多自调用的实例数
	DefaultMaxConcurrency = 10
)

// WarmupEvent 预热事件
type WarmupEvent struct {
	Source      string `json:"source"`
	Concurrency int    `json:"concurrency"`
}

// WarmupResponse 预热响应
type WarmupResponse struct {
	Status          string `json:"status"`
	Ready           bool   `json:"ready"`
	InstancesWarmed int    `json:"instancesWarmed"`
}

// Invoker 自调用所需的 Lambda 接口子集
type Invoker interface {
	Invoke(ctx context.Context, params *lambdasdk.InvokeInput, optFns ...func(*lambdasdk.Options)) (*lambdasdk.InvokeOutput, error)
}

// Warmer 把预热事件扩散到更多实例
type Warmer struct {
	invoker        Invoker
	functionName   string
	delay          time.Duration
	maxConcurrency int
}

// NewWarmer 创建预热器，maxConcurrency 为 0 时不自调用，负数使用默认上限
func NewWarmer(invoker Invoker, functionName string, maxConcurrency int) *Warmer {
	if maxConcurrency < 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Warmer{
		invoker:        invoker,
		functionName:   functionName,
		delay:          WarmupDelay,
		maxConcurrency: maxConcurrency,
	}
}

// NewSDKWarmer 使用默认 AWS 配置与环境变量中的函数名创建预热器
func NewSDKWarmer(ctx context.Context, maxConcurrency int) (*Warmer, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, err
	}
	return NewWarmer(lambdasdk.NewFromConfig(cfg), os.Getenv("AWS_LAMBDA_FUNCTION_NAME"), maxConcurrency), nil
}

// IsWarmupEvent 判断事件是否为预热事件
func IsWarmupEvent(event json.RawMessage) (*WarmupEvent, bool) {
	var warmup WarmupEvent
	if err := json.Unmarshal(event, &warmup); err != nil || warmup.Source != WarmupSource {
		return nil, false
	}
	return &warmup, true
}

// Handle 处理预热事件，返回被预热的实例数（包括当前实例）。
// w 为 nil 时只预热当前实例。
func (w *Warmer) Handle(ctx context.Context, warmup *WarmupEvent, ready bool) WarmupResponse {
	warmed := 1
	delay := WarmupDelay

	if w != nil {
		delay = w.delay
		if n := w.fanOut(warmup.Concurrency); n > 0 && w.invoker != nil {
			warmed += w.selfInvoke(ctx, n)
		}
	}

	time.Sleep(delay)

	return WarmupResponse{
		Status:          "warm",
		Ready:           ready,
		InstancesWarmed: warmed,
	}
}

// fanOut 将请求的并发数限制在上限内
func (w *Warmer) fanOut(requested int) int {
	if requested <= 0 {
		return 0
	}
	return min(requested, w.maxConcurrency)
}

// selfInvoke 并发地异步调用自身 count 次，返回成功的次数
func (w *Warmer) selfInvoke(ctx context.Context, count int) int {
	// 子调用的 concurrency 为 0，不会继续扩散
	payload, err := json.Marshal(WarmupEvent{Source: WarmupSource})
	if err != nil {
		return 0
	}

	results := make(chan error, count)
	for i := 0; i < count; i++ {
		go func() {
			_, err := w.invoker.Invoke(ctx, &lambdasdk.InvokeInput{
				FunctionName:   aws.String(w.functionName),
				InvocationType: types.InvocationTypeEvent,
				Payload:        payload,
			})
			results <- err
		}()
	}

	// 失败的自调用只少预热一个实例，不影响当前调用
	ok := 0
	for i := 0; i < count; i++ {
		if err := <-results; err == nil {
			ok++
		}
	}
	return ok
}
