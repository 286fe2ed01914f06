package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/talentscout/screener/internal/ai"
	"github.com/talentscout/screener/internal/ai/gemini"
	"github.com/talentscout/screener/internal/analysis"
	"github.com/talentscout/screener/internal/interview"
	"github.com/talentscout/screener/internal/logger"
	"github.com/talentscout/screener/internal/question"
	"github.com/talentscout/screener/internal/screening"
	"github.com/talentscout/screener/internal/secrets"
	"github.com/talentscout/screener/internal/store"
)

const closingMessage = "Thank you for your time! We will review your answers and get back to you by email."

var interviewCmd = &cobra.Command{
	Use:   "interview",
	Short: "Run a screening interview in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		runInterview(cmd)
	},
}

func init() {
	rootCmd.AddCommand(interviewCmd)

	interviewCmd.Flags().StringP("resume", "r", "", "resume the interview for the candidate with this email")
}

// runInterview is the main command for the cli.
func runInterview(cmd *cobra.Command) {
	ctx := context.Background()

	log0, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		log0.Fatal("getting a config", zap.Error(err))
	}

	log0.Info("starting the screener", zap.String("version", version))

	path := databasePath(config)
	st, err := store.Open(path)
	if err != nil {
		log0.Fatal("opening the database", zap.Error(err),
			zap.String("path", path),
			zap.String("hint", "run 'screener init' first"))
	}
	defer st.Close()

	static, plan, err := buildCatalog(config)
	if err != nil {
		log0.Fatal("loading the question catalog", zap.Error(err))
	}

	gen, maxLogLen, aiEnabled := buildContentGenerator(ctx, config, log0)

	var scorer ai.Scorer
	if aiEnabled {
		scorer = gemini.NewScorer(gen,
			logger.WithCommonFields(log0, "gemini", gen.Model()), maxLogLen)
	}

	runner := interview.New(st, static, interview.Config{
		Analyzer: analysis.New(st, scorer, log0),
		Plan:     plan,
		Logger:   log0,
	})

	resumeEmail, _ := cmd.Flags().GetString("resume")
	if resumeEmail != "" {
		if _, err := runner.Resume(ctx, resumeEmail); err != nil {
			log0.Fatal("resuming the session", zap.Error(err), zap.String("email", resumeEmail))
		}
		fmt.Printf("Welcome back, %s! Picking up where we left off.\n\n", runner.Candidate().Name)
	} else {
		for {
			info, err := collectIdentity()
			if err != nil {
				log0.Fatal("collecting candidate details", zap.Error(err))
			}
			if _, err := runner.Start(ctx, info); err != nil {
				if errors.Is(err, interview.ErrValidation) {
					fmt.Printf("%v, let's try again.\n\n", err)
					continue
				}
				log0.Fatal("starting the session", zap.Error(err))
			}
			break
		}
		fmt.Printf("\nThanks, %s! Let's begin. Answer each question in your own words.\n\n", runner.Candidate().Name)
	}

	if aiEnabled {
		interviewer := gemini.NewInterviewer(gen,
			logger.WithCommonFields(log0, "gemini", gen.Model()), maxLogLen)
		runner.SetGenerator(question.NewGenerated(interviewer, runner.Candidate(), 0))
	}

	askLoop(ctx, runner, plan, log0)
}

func askLoop(ctx context.Context, runner *interview.Runner, plan screening.Plan, log0 *zap.Logger) {
	total := plan.Total()
	for {
		q, err := runner.NextQuestion(ctx)
		if errors.Is(err, interview.ErrSessionClosed) {
			break
		}
		if errors.Is(err, question.ErrExhausted) {
			log0.Fatal("the question catalog ran out before the interview finished",
				zap.String("stage", string(runner.Session().Stage)),
				zap.String("hint", "add more questions to the catalog for this stage"))
		}
		if err != nil {
			log0.Fatal("fetching the next question", zap.Error(err))
		}

		fmt.Printf("[%s %d/%d] %s\n", runner.Session().Stage, len(runner.Session().Pairs)+1, total, q)

		answerPrompt := promptui.Prompt{Label: "Your answer"}
		raw, err := answerPrompt.Run()
		if err != nil {
			log0.Info("interview interrupted, progress is saved",
				zap.String("session_id", runner.Session().ID),
				zap.String("hint", "resume later with --resume "+runner.Candidate().Email))
			return
		}

		if _, err := runner.SubmitAnswer(ctx, raw); err != nil {
			if errors.Is(err, interview.ErrValidation) {
				fmt.Println("Please give a non-empty answer.")
				continue
			}
			if errors.Is(err, interview.ErrSessionClosed) {
				break
			}
			log0.Fatal("recording the answer", zap.Error(err))
		}
		fmt.Println()
	}

	fmt.Println(closingMessage)
}

func collectIdentity() (interview.CandidateInfo, error) {
	var info interview.CandidateInfo

	namePrompt := promptui.Prompt{
		Label: "Full name",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("name is required")
			}
			return nil
		},
	}
	emailPrompt := promptui.Prompt{
		Label: "Email",
		Validate: func(s string) error {
			if !strings.Contains(s, "@") || !strings.Contains(s, ".") {
				return errors.New("a valid email is required")
			}
			return nil
		},
	}
	phonePrompt := promptui.Prompt{Label: "Phone (optional)"}
	rolePrompt := promptui.Prompt{
		Label: "Desired role",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("role is required")
			}
			return nil
		},
	}

	var err error
	if info.Name, err = namePrompt.Run(); err != nil {
		return info, err
	}
	if info.Email, err = emailPrompt.Run(); err != nil {
		return info, err
	}
	if info.Phone, err = phonePrompt.Run(); err != nil {
		return info, err
	}
	if info.Role, err = rolePrompt.Run(); err != nil {
		return info, err
	}

	return info, nil
}

func buildCatalog(config *Config) (*question.Static, screening.Plan, error) {
	plan := screening.DefaultPlan()

	var static *question.Static
	var err error
	if config != nil && config.Interview != nil && config.Interview.Catalog != "" {
		static, err = question.LoadStatic(config.Interview.Catalog)
	} else {
		static, err = question.NewStatic()
	}
	if err != nil {
		return nil, nil, err
	}

	if config != nil && config.Interview != nil && config.Interview.TechnicalQuestions > 0 {
		plan[screening.StageTechnical] = config.Interview.TechnicalQuestions
	}

	if err := static.Covers(plan); err != nil {
		return nil, nil, err
	}

	return static, plan, nil
}

// buildContentGenerator wires the gemini client shared by question
// generation and scoring. Any failure is logged and the interview proceeds
// on the static catalog and heuristic analysis alone.
func buildContentGenerator(ctx context.Context, config *Config, log0 *zap.Logger) (*gemini.Generator, int, bool) {
	if config == nil || config.AI == nil || !config.AI.Enabled {
		return nil, 0, false
	}

	provider := strings.TrimSpace(strings.ToLower(config.AI.Provider))
	if provider != "" && provider != "gemini" {
		log0.Warn("unsupported ai provider, questions come from the catalog",
			zap.String("provider", config.AI.Provider))
		return nil, 0, false
	}

	geminiCfg := config.AI.Gemini
	if geminiCfg == nil {
		geminiCfg = &GeminiConfig{}
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: geminiCfg.APIKey,
		File:  geminiCfg.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		log0.Warn("gemini api key unavailable, questions come from the catalog", zap.Error(err))
		return nil, 0, false
	}

	model := geminiCfg.Model
	if model == "" {
		model = viper.GetString("ai.gemini.model")
	}

	gen, err := gemini.NewGenerator(ctx, apiKey, model)
	if err != nil {
		log0.Warn("building the gemini client failed, questions come from the catalog", zap.Error(err))
		return nil, 0, false
	}

	return gen, geminiCfg.MaxLogLength, true
}
