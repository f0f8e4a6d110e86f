package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/user/movierec/internal/config"
	"github.com/user/movierec/internal/model"
	"github.com/user/movierec/internal/repository"
	"github.com/user/movierec/internal/service"
)

// moviectl 运维命令行：批量导入、队列管理、用户管理
func main() {
	root := &cobra.Command{
		Use:           "moviectl",
		Short:         "电影推荐服务运维工具",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(populateCmd(), queueCmd(), userCmd())

	if err := root.Execute(); err != nil {
		log.Fatalf("执行失败: %v", err)
	}
}

// setup 加载配置并连接数据库
func setup() (*config.Config, *repository.Repositories, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}
	cfg := config.Load()

	db, err := repository.InitDB(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return cfg, repository.NewRepositories(db), nil
}

// confirm 危险操作二次确认
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func populateCmd() *cobra.Command {
	var url string
	var resume bool

	cmd := &cobra.Command{
		Use:   "populate-db",
		Short: "从 TMDB 每日导出批量导入电影",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" && !resume {
				return fmt.Errorf("必须提供 --url 或 --resume 之一")
			}

			cfg, repos, err := setup()
			if err != nil {
				return err
			}

			vectors := service.NewVectorStore(repos.Embedding, cfg)
			catalog := service.NewTMDBClient(cfg)
			pipeline := service.NewPipelineService(repos.DB, catalog, vectors, cfg)
			populate := service.NewPopulateService(repos.DB, catalog, pipeline, cfg)

			return populate.Run(url, resume)
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "每日导出文件 URL（gzip）")
	cmd.Flags().BoolVar(&resume, "resume", false, "从上次断点继续")
	return cmd
}

func queueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "入库队列管理",
	}
	cmd.AddCommand(queueListCmd(), queueCountsCmd(), queueSetCmd())
	return cmd
}

func queueListCmd() *cobra.Command {
	var page int
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "分页列出队列条目",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repos, err := setup()
			if err != nil {
				return err
			}

			st := model.QueueStatus(status)
			if status != "" && !model.IsValidQueueStatus(st) {
				return fmt.Errorf("无效的队列状态: %s", status)
			}

			items, total, err := repos.Queue.ListWithTitles(page, 20, st)
			if err != nil {
				return err
			}

			fmt.Printf("共 %d 条，第 %d 页\n", total, page)
			for _, item := range items {
				fmt.Printf("%-10d %-28s retries=%d %-40s %s\n",
					item.TmdbID, item.Status, item.Retries, item.Title, item.Message)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "页码")
	cmd.Flags().StringVar(&status, "status", "", "按状态过滤")
	return cmd
}

func queueCountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "各状态条目数统计",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repos, err := setup()
			if err != nil {
				return err
			}

			counts, err := repos.Queue.CountByStatus()
			if err != nil {
				return err
			}

			for _, s := range model.AllQueueStatuses {
				fmt.Printf("%-24s %d\n", s, counts[string(s)])
			}
			return nil
		},
	}
}

func queueSetCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "set <status> [tmdb_id...]",
		Short: "批量改写队列状态（不带 ID 则作用于全部条目）",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := model.QueueStatus(args[0])
			if !model.IsValidQueueStatus(status) {
				return fmt.Errorf("无效的队列状态: %s", args[0])
			}

			var ids []int64
			for _, arg := range args[1:] {
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					return fmt.Errorf("无效的 tmdb_id: %s", arg)
				}
				ids = append(ids, id)
			}

			if len(ids) == 0 {
				if !confirm(fmt.Sprintf("将把全部队列条目改为 %s，确定吗？", status)) {
					fmt.Println("已取消")
					return nil
				}
			}

			_, repos, err := setup()
			if err != nil {
				return err
			}

			affected, err := repos.Queue.BulkUpdateStatus(ids, status, message)
			if err != nil {
				return err
			}

			fmt.Printf("已更新 %d 条\n", affected)
			return nil
		},
	}

	cmd.Flags().StringVar(&message, "message", "", "备注信息")
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "用户管理",
	}
	cmd.AddCommand(userScopesCmd(), userStatusCmd())
	return cmd
}

func userScopesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scopes <email> <scope...>",
		Short: "更新用户权限范围",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repos, err := setup()
			if err != nil {
				return err
			}

			affected, err := repos.User.UpdateScopes(args[0], args[1:])
			if err != nil {
				return err
			}
			if affected == 0 {
				return fmt.Errorf("用户不存在: %s", args[0])
			}

			fmt.Println("权限已更新")
			return nil
		},
	}
}

func userStatusCmd() *cobra.Command {
	var disable bool

	cmd := &cobra.Command{
		Use:   "status <email>",
		Short: "启用/停用用户",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repos, err := setup()
			if err != nil {
				return err
			}

			affected, err := repos.User.UpdateDisabled(args[0], disable)
			if err != nil {
				return err
			}
			if affected == 0 {
				return fmt.Errorf("用户不存在: %s", args[0])
			}

			if disable {
				fmt.Println("用户已停用")
			} else {
				fmt.Println("用户已启用")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&disable, "disable", false, "停用用户（默认为启用）")
	return cmd
}
