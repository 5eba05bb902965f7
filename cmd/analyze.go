package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"yqhp/analysis-engine/internal/config"
	"yqhp/analysis-engine/pkg/engine"
	"yqhp/analysis-engine/pkg/types"
)

var (
	// analyze 命令的 flags
	analyzeDeadline   time.Duration
	analyzeFresh      bool
	analyzeNoRedis    bool
	analyzeJSONOutput string
)

// analyzeCmd 是 analyze 子命令
var analyzeCmd = &cobra.Command{
	Use:   "analyze <request.yaml>",
	Short: "执行一次分析请求",
	Long: `读取请求文件并执行一次完整的分析编排。

请求文件为 YAML 格式：
  id: req-001
  subject: Acme 并购协议
  content: |
    （待分析的材料全文）
  aspects:
    - risks
    - compliance`,
	Example: `  # 基本执行
  analysis-engine analyze request.yaml

  # 指定配置文件与请求级 deadline
  analysis-engine analyze --config config.yaml -d 90s request.yaml

  # 跳过缓存强制重算
  analysis-engine analyze --fresh request.yaml

  # 输出结果 JSON 到文件
  analysis-engine analyze --out-json result.json request.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().DurationVarP(&analyzeDeadline, "deadline", "d", 0, "请求级 deadline (覆盖配置)")
	analyzeCmd.Flags().BoolVar(&analyzeFresh, "fresh", false, "先失效缓存再执行，强制重新计算")
	analyzeCmd.Flags().BoolVar(&analyzeNoRedis, "no-redis", false, "共享/归档缓存层使用进程内存储")
	analyzeCmd.Flags().StringVar(&analyzeJSONOutput, "out-json", "", "输出结果 JSON 到文件")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := config.NewLoader().WithConfigPath(cfgFile).Load()
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}

	if debug {
		cfg.Logging.Level = "debug"
	}
	if quiet {
		cfg.Logging.Output = "file"
		if cfg.Logging.FilePath == "" {
			cfg.Logging.FilePath = "logs/analysis-engine.log"
		}
	}
	if analyzeDeadline > 0 {
		cfg.Orchestrator.RequestDeadline = analyzeDeadline
	}

	req, err := loadRequest(args[0])
	if err != nil {
		return fmt.Errorf("读取请求文件失败: %w", err)
	}

	// 创建可取消的上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 处理关闭信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\n正在中止分析...")
		cancel()
	}()

	eng, err := engine.New(ctx, cfg, engine.Options{DisableRedis: analyzeNoRedis})
	if err != nil {
		return fmt.Errorf("装配引擎失败: %w", err)
	}
	defer eng.Close()

	if !quiet {
		printAnalyzeInfo(req, cfg)
	}

	if analyzeFresh {
		eng.Invalidate(ctx, req)
	}

	result, err := eng.Analyze(ctx, req)
	if err != nil {
		return fmt.Errorf("执行失败: %w", err)
	}

	if !quiet {
		printAnalyzeResult(result, eng)
	}

	if analyzeJSONOutput != "" {
		data, err := sonic.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("序列化结果失败: %w", err)
		}
		if err := os.WriteFile(analyzeJSONOutput, data, 0644); err != nil {
			return fmt.Errorf("写入 JSON 输出失败: %w", err)
		}
		if !quiet {
			fmt.Printf("\n结果已写入: %s\n", analyzeJSONOutput)
		}
	}

	if !result.IsUsable() {
		return fmt.Errorf("分析失败: %s", failureReason(result))
	}
	return nil
}

// loadRequest 解析 YAML 请求文件。
func loadRequest(path string) (*types.AnalysisRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var req types.AnalysisRequest
	if err := yaml.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("解析 YAML 失败: %w", err)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return &req, nil
}

func failureReason(result *types.OrchestrationResult) string {
	if result.PhaseFailure != nil {
		return result.PhaseFailure.Reason
	}
	return "未知原因"
}

func printAnalyzeInfo(req *types.AnalysisRequest, cfg *config.Config) {
	fmt.Printf(Banner, Version)
	fmt.Printf("  %s\n", req.Subject)
	fmt.Println()
	fmt.Printf("  请求 ID: %s\n", req.ID)
	if len(req.Aspects) > 0 {
		fmt.Printf("  重点关注: %v\n", req.Aspects)
	}
	fmt.Printf("  并发上限: %d\n", cfg.Limiter.MaxConcurrent)
	fmt.Printf("  请求 deadline: %s\n", cfg.Orchestrator.RequestDeadline)
	fmt.Println()
	fmt.Println("分析中...")
	fmt.Println()
}

func printAnalyzeResult(result *types.OrchestrationResult, eng *engine.Engine) {
	fmt.Println()
	fmt.Println("     分析结果:")
	fmt.Println()
	fmt.Printf("     状态...............: %s\n", statusLabel(result.Status))
	fmt.Printf("     置信度.............: %.2f\n", result.Confidence)
	fmt.Printf("     总耗时.............: %s\n", result.Elapsed.Round(time.Millisecond))
	fmt.Printf("     缓存命中...........: %s\n", cacheLabel(result))
	if len(result.FailedWorkers) > 0 {
		fmt.Printf("     失败 worker........: %v\n", result.FailedWorkers)
	}

	if len(result.Timings) > 0 {
		fmt.Println()
		fmt.Println("     各 worker 耗时:")
		names := make([]string, 0, len(result.Timings))
		for name := range result.Timings {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("       %-24s %.1fms\n", name, result.Timings[name])
		}
	}

	stats := eng.CacheStats()
	fmt.Println()
	fmt.Printf("     缓存统计...........: 命中率 %.0f%% (内存 %d / 共享 %d / 归档 %d / 未命中 %d)\n",
		stats.HitRate*100, stats.MemoryHits, stats.SharedHits, stats.ArchiveHits, stats.Misses)
	fmt.Printf("     当前限流速率.......: %.1f/s\n", eng.CurrentRate())
	fmt.Println()
}

func statusLabel(status types.RunStatus) string {
	switch status {
	case types.RunStatusCompleted:
		return "已完成"
	case types.RunStatusDegraded:
		return "降级完成"
	case types.RunStatusFailed:
		return "失败"
	default:
		return string(status)
	}
}

func cacheLabel(result *types.OrchestrationResult) string {
	if !result.CacheHit {
		return "否（新计算）"
	}
	return fmt.Sprintf("是（%s 层）", result.CacheTier)
}
