package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cyberlegal-backend/config"
	"cyberlegal-backend/logging"
	"cyberlegal-backend/repository"
	"cyberlegal-backend/service"

	"github.com/urfave/cli/v2"
)

func main() {
	config.LoadDotEnv()

	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	topK := &cli.IntFlag{Name: "top-k", Aliases: []string{"k"}, Value: 5, Usage: "Number of cases to retrieve"}
	return &cli.App{
		Name:  "casequery",
		Usage: "Query the cybercrime case store from the console",
		Commands: []*cli.Command{
			{
				Name:      "search",
				Usage:     "Print the cases most similar to a query",
				ArgsUsage: "<query>",
				Flags:     []cli.Flag{topK},
				Action:    searchAction,
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the most similar cases",
				ArgsUsage: "<question>",
				Flags:     []cli.Flag{topK},
				Action:    askAction,
			},
		},
	}
}

type session struct {
	cfg       *config.Config
	logger    *slog.Logger
	retriever *service.Retriever
	closers   []func()
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	// Console output stays readable: only warnings and errors are logged
	logger := logging.Init(cfg.LogFormat, slog.LevelWarn)

	s := &session{cfg: cfg, logger: logger}
	client, err := service.NewGeminiClient(ctx, cfg.GoogleAPIKey)
	if err != nil {
		return nil, err
	}
	if client != nil {
		s.closers = append(s.closers, func() { client.Close() })
	}

	db, err := repository.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.closers = append(s.closers, db.Close)

	repo := repository.NewCaseRepository(db, service.NewGeminiEmbedder(client, cfg.EmbeddingModel, cfg.EmbeddingDimensions))
	s.retriever = service.NewRetriever(repo, cfg.CallTimeout)
	return s, nil
}

func queryArg(c *cli.Context) (string, error) {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return "", fmt.Errorf("a query is required")
	}
	return query, nil
}

func searchAction(c *cli.Context) error {
	query, err := queryArg(c)
	if err != nil {
		return err
	}

	ctx := c.Context
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	items, err := s.retriever.Retrieve(ctx, query, c.Int("top-k"))
	if err != nil {
		return err
	}
	printSearchResults(c.App.Writer, query, items)
	return nil
}

func askAction(c *cli.Context) error {
	question, err := queryArg(c)
	if err != nil {
		return err
	}

	ctx := c.Context
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	opts := []service.AnswerServiceOption{
		service.AnswerWithRetriever(s.retriever),
		service.AnswerWithFormatter(service.NewEvidenceFormatter(s.cfg.SummaryMaxChars)),
		service.AnswerWithGeneration(s.cfg.Temperature, s.cfg.MaxOutputTokens),
		service.AnswerWithTimeout(s.cfg.GenerationTimeout),
		service.AnswerWithLogger(s.logger),
	}
	llm, err := service.NewGeminiClient(ctx, s.cfg.GeminiAPIKey)
	if err != nil {
		return err
	}
	if llm != nil {
		defer llm.Close()
		opts = append(opts, service.AnswerWithCompleter(service.NewGeminiCompleter(llm, s.cfg.GenerationModel, s.logger)))
	}

	result, err := service.NewAnswerService(opts...).Answer(ctx, question, c.Int("top-k"))
	if err != nil {
		return err
	}
	printAnswer(c.App.Writer, result)
	return nil
}
