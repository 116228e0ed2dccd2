package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"spot-letter/models"
)

var (
	importUser string
	importFrom string
	importTo   string

	saveUser       string
	saveFile       string
	saveFromImport string
	savePick       string

	usageJob   string
	usageSince time.Duration

	accountUser     string
	accountProvider string
	accountRef      string
	accountToken    string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "게시물 가져오기 작업 생성",
	Long: `연결된 계정에서 기간 내 게시물을 가져오는 작업을 만든다.

Examples:
  jobctl import --user u1 --from 2024-03-01 --to 2024-03-31`,
	RunE: func(cmd *cobra.Command, args []string) error {
		window, err := parseWindow(importFrom, importTo)
		if err != nil {
			return err
		}
		id, err := svc.CreateImportJob(cmd.Context(), importUser, window)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "후보 저장 작업 생성",
	Long: `가져오기 결과 중 고른 후보(또는 JSON 파일의 후보 목록)를 저장하는 작업을 만든다.

Examples:
  jobctl save --user u1 --from-import 65f0c0ffee --pick 0,2
  jobctl save --user u1 --file candidates.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var candidates []models.EnrichedCandidate
		switch {
		case saveFile != "":
			data, err := os.ReadFile(saveFile)
			if err != nil {
				return err
			}
			if err := json.Unmarshal(data, &candidates); err != nil {
				return fmt.Errorf("parse %s: %w", saveFile, err)
			}
		case saveFromImport != "":
			view, err := svc.GetImportJob(cmd.Context(), saveFromImport)
			if err != nil {
				return err
			}
			if view.Status != models.JobCompleted || view.Result == nil {
				return fmt.Errorf("import job %s is %s", saveFromImport, view.Status)
			}
			candidates, err = pickCandidates(view.Result.Candidates, savePick)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("--file or --from-import is required")
		}

		id, err := svc.CreateSaveJob(cmd.Context(), saveUser, candidates)
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <import|save> <job-id>",
	Short: "작업 상태 조회",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			view any
			err  error
		)
		switch args[0] {
		case "import":
			view, err = svc.GetImportJob(cmd.Context(), args[1])
		case "save":
			view, err = svc.GetSaveJob(cmd.Context(), args[1])
		default:
			return fmt.Errorf("unknown job kind %q", args[0])
		}
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	},
}

var placesCmd = &cobra.Command{
	Use:   "places <save-job-id>",
	Short: "저장 작업이 만든 장소와 인벤토리 매핑 조회",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		details, err := report.ForSaveJob(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(details)
	},
}

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "LLM 호출 사용량 조회",
	Long: `목적별 LLM 호출 수와 토큰을 집계한다. --job 을 주면 그 작업의 호출 목록을 보여준다.

Examples:
  jobctl usage --since 24h
  jobctl usage --job 65f0c0ffee`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			out any
			err error
		)
		if usageJob != "" {
			out, err = aiLogs.ListByJob(cmd.Context(), usageJob)
		} else {
			out, err = aiLogs.UsageByPurpose(cmd.Context(), time.Now().Add(-usageSince))
		}
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <import|save> <job-id>",
	Short: "작업 취소",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			ok  bool
			err error
		)
		switch args[0] {
		case "import":
			ok, err = svc.CancelImportJob(cmd.Context(), args[1])
		case "save":
			ok, err = svc.CancelSaveJob(cmd.Context(), args[1])
		default:
			return fmt.Errorf("unknown job kind %q", args[0])
		}
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("job already finished")
			return nil
		}
		fmt.Println("cancelled")
		return nil
	},
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "사용자의 콘텐츠 계정 연결",
	Long: `가져오기 작업이 사용할 계정을 등록한다. rss 는 --ref 에 피드 URL 을 넣는다.

Examples:
  jobctl account --user u1 --provider instagram --ref 17841400000 --token IGQV...
  jobctl account --user u2 --provider rss --ref https://example.com/feed.xml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch accountProvider {
		case models.AccountProviderInstagram, models.AccountProviderRSS:
		default:
			return fmt.Errorf("unknown provider %q", accountProvider)
		}
		return accounts.Upsert(cmd.Context(), &models.ConnectedAccount{
			UserID:      accountUser,
			Provider:    accountProvider,
			AccountRef:  accountRef,
			AccessToken: accountToken,
		})
	},
}

func init() {
	importCmd.Flags().StringVar(&importUser, "user", "", "user id")
	importCmd.Flags().StringVar(&importFrom, "from", "", "window start (YYYY-MM-DD or RFC3339)")
	importCmd.Flags().StringVar(&importTo, "to", "", "window end (YYYY-MM-DD or RFC3339, inclusive)")
	_ = importCmd.MarkFlagRequired("user")
	_ = importCmd.MarkFlagRequired("from")
	_ = importCmd.MarkFlagRequired("to")

	saveCmd.Flags().StringVar(&saveUser, "user", "", "user id")
	saveCmd.Flags().StringVar(&saveFile, "file", "", "JSON file with candidates")
	saveCmd.Flags().StringVar(&saveFromImport, "from-import", "", "completed import job id")
	saveCmd.Flags().StringVar(&savePick, "pick", "", "comma separated candidate indexes (default all)")
	_ = saveCmd.MarkFlagRequired("user")

	usageCmd.Flags().StringVar(&usageJob, "job", "", "job id")
	usageCmd.Flags().DurationVar(&usageSince, "since", 24*time.Hour, "aggregation window")

	accountCmd.Flags().StringVar(&accountUser, "user", "", "user id")
	accountCmd.Flags().StringVar(&accountProvider, "provider", models.AccountProviderInstagram, "instagram | rss")
	accountCmd.Flags().StringVar(&accountRef, "ref", "", "account id or feed URL")
	accountCmd.Flags().StringVar(&accountToken, "token", "", "access token")
	_ = accountCmd.MarkFlagRequired("user")
	_ = accountCmd.MarkFlagRequired("ref")
}

// parseWindow 는 날짜만 주어지면 to 를 그 날의 끝으로 잡는다.
func parseWindow(from, to string) (models.TimeWindow, error) {
	start, _, err := parseTime(from)
	if err != nil {
		return models.TimeWindow{}, fmt.Errorf("--from: %w", err)
	}
	end, dateOnly, err := parseTime(to)
	if err != nil {
		return models.TimeWindow{}, fmt.Errorf("--to: %w", err)
	}
	if dateOnly {
		end = end.Add(24*time.Hour - time.Nanosecond)
	}
	if end.Before(start) {
		return models.TimeWindow{}, fmt.Errorf("--to is before --from")
	}
	return models.TimeWindow{Start: start, End: end}, nil
}

func parseTime(s string) (time.Time, bool, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	return t, false, err
}

// pickCandidates 는 인덱스 목록으로 후보를 고른다. 빈 목록이면 전부다.
func pickCandidates(all []models.EnrichedCandidate, pick string) ([]models.EnrichedCandidate, error) {
	if strings.TrimSpace(pick) == "" {
		return all, nil
	}
	seen := map[int]bool{}
	var out []models.EnrichedCandidate
	for _, part := range strings.Split(pick, ",") {
		i, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || i < 0 || i >= len(all) {
			return nil, fmt.Errorf("invalid candidate index %q", part)
		}
		if seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, all[i])
	}
	return out, nil
}
