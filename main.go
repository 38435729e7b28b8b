package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/zuccha/dnd-portal-sub000/binding"
	"github.com/zuccha/dnd-portal-sub000/layout"
	"github.com/zuccha/dnd-portal-sub000/logging"
	"github.com/zuccha/dnd-portal-sub000/pagecount"
	"github.com/zuccha/dnd-portal-sub000/prefs"
	"github.com/zuccha/dnd-portal-sub000/printsheet"
	"github.com/zuccha/dnd-portal-sub000/renderer"
	canvasrenderer "github.com/zuccha/dnd-portal-sub000/renderer/canvas"
)

type options struct {
	layoutPath string
	dataPath   string
	outputPath string
	debugPath  string
	debugPages bool
	savePrefs  bool
	prefsPath  string
	prefs      prefs.Preferences
}

func main() {
	defaultPrefs, err := prefs.DefaultPath()
	if err != nil {
		defaultPrefs = "preferences.json"
	}
	layoutPath := flag.String("layout", "", "卡牌模板路径（.json 或模板 DSL）")
	dataPath := flag.String("data", "", "卡牌数据 JSON 文件，数组中每个元素生成一张卡牌")
	output := flag.String("out", "output/cards.pdf", "PDF 输出路径")
	config := flag.String("config", defaultPrefs, "偏好设置文件路径")
	envFile := flag.String("env", ".env", "环境变量文件路径")
	debug := flag.String("debug", "", "排版调试 JSON 输出路径")
	debugPages := flag.Bool("debug-pages", false, "在调试 JSON 中附带每页的分页文本")
	logFile := flag.String("log-file", "", "日志文件路径（按大小轮转）")
	verbose := flag.Bool("v", false, "输出调试日志")
	save := flag.Bool("save-prefs", false, "将本次使用的模板与数据路径写回偏好设置")
	flag.Parse()

	logger := logging.New(logging.Options{FilePath: *logFile, Debug: *verbose})
	defer logger.Sync()

	if err := prefs.LoadEnvFile(*envFile); err != nil {
		log.Fatalf("载入环境变量失败: %v", err)
	}
	p, err := prefs.Load(*config)
	if err != nil {
		log.Fatalf("载入偏好设置失败: %v", err)
	}
	if p, err = prefs.ApplyEnv(p, nil); err != nil {
		log.Fatalf("环境变量中的打印设置无效: %v", err)
	}
	opts := options{
		layoutPath: firstNonEmpty(*layoutPath, p.LayoutPath),
		dataPath:   firstNonEmpty(*dataPath, p.DataPath),
		outputPath: *output,
		debugPath:  *debug,
		debugPages: *debugPages,
		savePrefs:  *save,
		prefsPath:  *config,
		prefs:      p,
	}
	if opts.layoutPath == "" {
		log.Fatalf("缺少卡牌模板，请使用 -layout 指定")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := canvasrenderer.NewRendererWithOptions(canvasrenderer.Options{
		BaseDir: filepath.Dir(opts.layoutPath),
		Logger:  logger,
		Meta:    canvasrenderer.Meta{Title: filepath.Base(opts.layoutPath), Creator: "dnd-portal"},
	})
	if err := run(ctx, opts, r, logger); err != nil {
		logger.Error("生成 PDF 失败", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
	fmt.Printf("已生成 PDF：%s\n", opts.outputPath)
}

// run 串联模板载入、排版、拼版与渲染。
func run(ctx context.Context, opts options, r renderer.Backend, logger *zap.Logger) error {
	if r == nil {
		return fmt.Errorf("renderer 不能为空")
	}
	tmpl, err := layout.LoadLayout(opts.layoutPath)
	if err != nil {
		return err
	}
	records, err := loadRecords(opts.dataPath)
	if err != nil {
		return err
	}

	store := pagecount.NewStore()
	unsubscribe := store.Subscribe(func(total int) {
		logger.Debug("卡面总数变化", zap.Int("total", total))
	})
	defer unsubscribe()

	interp := binding.NewInterpolator(time.Minute)
	defer interp.Flush()
	cards := make([]*layout.Card, 0, len(records))
	seen := map[string]bool{}
	for i, rec := range records {
		id := recordID(rec, i)
		if seen[id] {
			id = fmt.Sprintf("%s-%d", id, i+1)
		}
		seen[id] = true
		// 卡牌处理完成后 Close 报告页数未知，store 随之移除该卡牌
		coord := layout.NewCoordinator(r, nil, store.Reporter(id))
		defer coord.Close()
		card, err := layout.BuildCard(id, tmpl, rec, layout.BuildOptions{
			Measurer:     r,
			Logger:       logger,
			Interpolator: interp,
			Coordinator:  coord,
			Debug:        layout.DebugOptions{Pages: opts.debugPages},
		})
		if err != nil {
			return fmt.Errorf("排版卡牌 %s 失败: %w", id, err)
		}
		cards = append(cards, card)
	}

	if opts.debugPath != "" {
		if err := writeDebug(cards, opts.debugPath); err != nil {
			return err
		}
	}

	doc, err := printsheet.Assign(cards, opts.prefs.Print)
	if err != nil {
		return fmt.Errorf("拼版失败: %w", err)
	}
	logger.Info("拼版完成",
		zap.Int("cards", store.Len()),
		zap.Int("pages", store.Sum()),
		zap.Int("columns", doc.Grid.Columns),
		zap.Int("rows", doc.Grid.Rows),
		zap.Int("cardsPerSheet", doc.Grid.CardsPerSheet),
		zap.Int("sheets", doc.Grid.TotalSheets(store.Sum())),
		zap.String("paper", string(opts.prefs.Print.PaperType)),
		zap.String("layout", string(opts.prefs.Print.Layout)))

	pdfBytes, err := r.Render(ctx, doc)
	if err != nil {
		return fmt.Errorf("渲染 PDF 失败: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(opts.outputPath), 0o755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(opts.outputPath, pdfBytes, 0o644); err != nil {
		return fmt.Errorf("写入 PDF 文件失败: %w", err)
	}

	if opts.savePrefs {
		p := opts.prefs
		p.LayoutPath, p.DataPath = opts.layoutPath, opts.dataPath
		if err := prefs.Save(opts.prefsPath, p); err != nil {
			return fmt.Errorf("保存偏好设置失败: %w", err)
		}
	}
	return nil
}

// loadRecords 读取数据文件：数组中的每个元素是一条记录，单个对象视为一条记录。
// 未指定数据文件时生成一条空记录。
func loadRecords(path string) ([]any, error) {
	if path == "" {
		return []any{nil}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取数据文件 %s 失败: %w", path, err)
	}
	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("解析数据文件 %s 失败: %w", path, err)
	}
	if list, ok := data.([]any); ok {
		return list, nil
	}
	return []any{data}, nil
}

func recordID(rec any, i int) string {
	if m, ok := rec.(map[string]any); ok {
		if id, ok := m["id"].(string); ok && id != "" {
			return id
		}
	}
	return fmt.Sprintf("card-%d", i+1)
}

func writeDebug(cards []*layout.Card, debugPath string) error {
	if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
		return fmt.Errorf("创建调试目录失败: %w", err)
	}
	if err := layout.WriteDebugJSON(cards, debugPath); err != nil {
		return fmt.Errorf("输出调试 JSON 失败: %w", err)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
