// Greenery — CLI JSON агент над датасетом RIVM "groenpercentage per buurt".
//
// Загружает датасет по WFS и отдаёт вопрос модели, которая ищет ответ
// инструментами json_spec_*.
//
// Использование:
//
//	./greenery                                  # вопрос по умолчанию
//	./greenery "What is the _mean of Centrum?"
//	./greenery -verbose -model llama3 "вопрос"
//	./greenery -lookup Binnenstad-Noord         # без модели
//	./greenery -export groen.db -export-format sqlite
//	./greenery -i                               # интерактивный режим
//
// Код выхода 1 при любой ошибке, сообщение в stderr.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/greenery-agent/internal/ui"
	"github.com/ilkoid/greenery-agent/pkg/app"
	"github.com/ilkoid/greenery-agent/pkg/dataset"
	"github.com/ilkoid/greenery-agent/pkg/events"
	"github.com/ilkoid/greenery-agent/pkg/utils"
)

// Version — версия утилиты (заполняется при сборке)
var Version = "dev"

func main() {
	if err := run(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Парсим флаги
	var (
		configPath   = flag.String("config", "", "Path to config.yaml (default: search ./config.yaml, then built-in defaults)")
		envFile      = flag.String("env", ".env", "Path to .env file with AZURE_OPENAI_API_KEY")
		modelName    = flag.String("model", "", "Override models.default_chat")
		verbose      = flag.Bool("verbose", false, "Print agent reasoning and tool calls to stderr")
		debugFlag    = flag.Bool("debug", false, "Write a JSON debug trace of the run")
		interactive  = flag.Bool("i", false, "Interactive mode: ask several questions about one fetched dataset")
		exportPath   = flag.String("export", "", "Write the neighbourhood to greenery mapping to this file")
		exportFormat = flag.String("export-format", "", "Export format: json or sqlite (default: export.format)")
		lookup       = flag.String("lookup", "", "Print the value for a neighbourhood directly, without the model")
		jsonOutput   = flag.Bool("json", false, "Output the answer in JSON format")
		showVersion  = flag.Bool("version", false, "Show version")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("greenery version %s\n", Version)
		return nil
	}

	// 2. Конфигурация (.env → config.yaml → дефолты)
	cfg, cfgPath, err := app.InitializeConfig(&app.DefaultConfigPathFinder{ConfigFlag: *configPath}, *envFile)
	if err != nil {
		return err
	}

	if err := utils.InitLogger(cfg.App.LogsDir, cfg.App.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	// 3. Контекст с отменой по SIGINT/SIGTERM (закрывает лог)
	ctx, shutdown := utils.SetupGracefulShutdownWithContext()
	defer shutdown()

	utils.Info("greenery started", "version", Version, "config", cfgPath)

	// -lookup и -export работают без вопроса к модели
	needsModel := *lookup == "" && *exportPath == "" || *interactive || flag.NArg() > 0
	opts := app.Options{
		Model:   *modelName,
		Verbose: *verbose,
		Output:  os.Stderr,
		Debug:   *debugFlag,
	}

	// 4. Датасет + компоненты
	comps, err := app.Initialize(ctx, cfg, opts)
	if err != nil {
		return err
	}

	// 5. Действия без модели
	if *exportPath != "" {
		result, err := comps.Export(ctx, *exportPath, *exportFormat)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported %d neighbourhoods to %s (%s)\n", result.Count, result.Path, result.Format)
		if result.UploadKey != "" {
			fmt.Fprintf(os.Stderr, "Uploaded to s3://%s/%s\n", cfg.S3.Bucket, result.UploadKey)
		}
	}
	if *lookup != "" {
		answer, err := comps.Lookup(*lookup)
		if err != nil {
			return err
		}
		fmt.Println(answer)
	}
	if !needsModel {
		return nil
	}

	// 6. Интерактивный режим
	if *interactive {
		return runInteractive(ctx, comps, *verbose)
	}

	// 7. Один вопрос
	question := cfg.Agent.Question
	if flag.NArg() > 0 {
		question = strings.Join(flag.Args(), " ")
	}

	result, err := app.Execute(ctx, comps, question)
	if err != nil {
		return err
	}

	if *jsonOutput {
		return printJSON(question, result)
	}
	printHuman(result)
	return nil
}

// runInteractive запускает Bubble Tea UI поверх одного загруженного датасета.
func runInteractive(ctx context.Context, comps *app.Components, verbose bool) error {
	emitter := events.NewChanEmitter(100)
	defer emitter.Close()
	comps.Chain.SetEmitter(emitter)

	model := ui.InitialModel(ctx, comps.Chain, emitter.Subscribe(), ui.Info{
		Model:   comps.ModelName,
		Source:  comps.Document.Source,
		Verbose: verbose || comps.Config.Agent.Verbose,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("interactive mode: %w", err)
	}
	return nil
}

// printError печатает ошибку и, для ошибок загрузки датасета, подсказку.
func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if errors.Is(err, app.ErrDatasetFetch) {
		fmt.Fprintf(os.Stderr, "Hint: %s\n", dataset.ClassifyError(err).HumanMessage())
	}
}
