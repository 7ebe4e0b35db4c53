package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/ByLCY/inkpost/config"
	"github.com/ByLCY/inkpost/llm"
	"github.com/ByLCY/inkpost/logx"
	"github.com/ByLCY/inkpost/pipeline"
	"github.com/ByLCY/inkpost/publish"
	"github.com/ByLCY/inkpost/renderer"
	canvasrenderer "github.com/ByLCY/inkpost/renderer/canvas"
	"github.com/ByLCY/inkpost/renderer/raster"
	"github.com/ByLCY/inkpost/watch"
)

type options struct {
	configPath string
	envFile    string
	pipeline   string
	only       string
	publish    bool
	renderer   string
	parallel   int
	debugDir   string
	pdf        bool
	watch      bool
	verbose    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "inkpost.yaml", "配置文件路径（.yaml/.yml/.toml）")
	flag.StringVar(&opts.envFile, "env", "", "凭据 .env 文件路径，默认读取当前目录的 .env（可缺省）")
	flag.StringVar(&opts.pipeline, "pipeline", pipeline.DefaultPipeline, "要运行的流水线名称")
	flag.StringVar(&opts.only, "only", "", "只运行指定命名空间，例如 quote.love")
	flag.BoolVar(&opts.publish, "publish", false, "生成后发布图片")
	flag.StringVar(&opts.renderer, "renderer", "", "渲染后端 raster|canvas，覆盖配置")
	flag.IntVar(&opts.parallel, "parallel", 0, "并发运行的命名空间数量，覆盖配置")
	flag.StringVar(&opts.debugDir, "debug", "", "布局调试 JSON 输出目录")
	flag.BoolVar(&opts.pdf, "pdf", false, "canvas 后端同时输出 final.pdf")
	flag.BoolVar(&opts.watch, "watch", false, "监视配置与模板文件，变更后重新运行")
	flag.BoolVar(&opts.verbose, "v", false, "输出调试日志")
	flag.Parse()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		if !opts.watch {
			log.Fatalf("运行失败: %v", err)
		}
		logx.L().Error("run failed, waiting for changes", "err", err)
	}
	if !opts.watch {
		return
	}

	err := watch.Run(ctx, func() []string { return watchedPaths(opts.configPath) }, watch.DefaultDebounce, func(ctx context.Context) error {
		return run(ctx, opts)
	})
	if err != nil {
		log.Fatalf("监视文件失败: %v", err)
	}
}

// watchedPaths 每次运行后重新计算监视列表；配置暂时无法加载时只监视配置文件本身。
func watchedPaths(configPath string) []string {
	cfg, err := config.Load(configPath)
	if err != nil {
		logx.L().Warn("config not loadable, watching it alone", "err", err)
		return []string{configPath}
	}
	return cfg.Watched()
}

// run 串联配置、凭据、渲染后端、模型与流水线，执行一次完整运行。
func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("加载配置失败: %w", err)
	}
	if opts.renderer != "" {
		cfg.Renderer = opts.renderer
	}
	if opts.parallel > 0 {
		cfg.Parallel = opts.parallel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("配置无效: %w", err)
	}
	creds, err := config.LoadCredentials(opts.envFile)
	if err != nil {
		return fmt.Errorf("加载凭据失败: %w", err)
	}

	r, err := newRenderer(cfg)
	if err != nil {
		return fmt.Errorf("创建渲染后端失败: %w", err)
	}
	deps := pipeline.Deps{
		Renderer: r,
		DebugDir: opts.debugDir,
		PDF:      opts.pdf,
	}
	client := llm.NewClient(llm.Options{
		APIKey:       creds.OpenAIKey,
		BaseURL:      creds.OpenAIBaseURL,
		Model:        cfg.LLM.Model,
		Temperature:  cfg.LLM.Temperature,
		Timeout:      cfg.LLM.Timeout.Duration,
		LocalBaseURL: cfg.LLM.LocalBaseURL,
		LocalModel:   cfg.LLM.LocalModel,
	})
	deps.Generator = llm.NewGenerator(client)
	deps.Generator.MaxAttempts = cfg.LLM.MaxAttempts
	deps.Generator.RetryDelay = cfg.LLM.RetryDelay.Duration
	if opts.publish {
		pub, err := publish.New(cfg.Publish, creds)
		if err != nil {
			return fmt.Errorf("创建发布器失败: %w", err)
		}
		deps.Publisher = pub
	}

	pipelines, err := pipeline.Register(cfg, deps)
	if err != nil {
		return fmt.Errorf("注册流水线失败: %w", err)
	}
	p, ok := pipelines[opts.pipeline]
	if !ok {
		return fmt.Errorf("未知流水线 %q（可选：%s）", opts.pipeline, strings.Join(names(pipelines), ", "))
	}
	if opts.only != "" {
		p = p.Only(opts.only + ".")
		if p.Len() == 0 {
			return fmt.Errorf("流水线 %q 中没有命名空间 %q", opts.pipeline, opts.only)
		}
	}
	catalog, err := pipeline.BuildCatalog(cfg, deps)
	if err != nil {
		return fmt.Errorf("构建数据目录失败: %w", err)
	}

	logx.L().Debug("catalog ready", "datasets", catalog.Names())
	logx.L().Info("running pipeline", "name", opts.pipeline, "nodes", p.Len(), "renderer", cfg.Renderer, "model", client.Model())
	runner := &pipeline.Runner{Catalog: catalog, Parallel: cfg.Parallel}
	if err := runner.RunAll(ctx, p); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("流水线运行失败: %w", err)
	}
	fmt.Printf("已生成图片：%s\n", cfg.OutputDir)
	return nil
}

func newRenderer(cfg *config.Config) (renderer.Renderer, error) {
	if cfg.Renderer != "canvas" {
		return raster.NewRenderer(cfg.FontDir), nil
	}
	extra := make(map[string]canvasrenderer.Resource, len(cfg.Fonts.Extra))
	for name, path := range cfg.Fonts.Extra {
		extra[name] = canvasrenderer.Resource{Path: path}
	}
	return canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{BaseDir: cfg.FontDir, Fonts: extra})
}

func names(m map[string]*pipeline.Pipeline) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
