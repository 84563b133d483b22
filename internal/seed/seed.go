package seed

import (
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"jobtrack/internal/database"
)

// 共享种子数据：所有用户可见、不可修改的招聘平台与示例公司。
var sharedJobBoards = []database.JobBoard{
	{Name: "Indeed", URL: "https://www.indeed.com"},
	{Name: "LinkedIn", URL: "https://www.linkedin.com/jobs"},
	{Name: "Glassdoor", URL: "https://www.glassdoor.com"},
	{Name: "ZipRecruiter", URL: "https://www.ziprecruiter.com"},
	{Name: "Monster", URL: "https://www.monster.com"},
	{Name: "SimplyHired", URL: "https://www.simplyhired.com"},
	{Name: "CareerBuilder", URL: "https://www.careerbuilder.com"},
	{Name: "Dice", URL: "https://www.dice.com"},
	{Name: "AngelList", URL: "https://angel.co/jobs"},
	{Name: "Stack Overflow Jobs", URL: "https://stackoverflow.com/jobs"},
	{Name: "Hired", URL: "https://hired.com"},
	{Name: "FlexJobs", URL: "https://www.flexjobs.com"},
	{Name: "Remote.co", URL: "https://remote.co/remote-jobs"},
	{Name: "Job.com", URL: "https://www.job.com"},
	{Name: "Snagajob", URL: "https://www.snagajob.com"},
}

var sharedCompanies = []database.Company{
	{Name: "TechCorp", Website: "https://techcorp.com", Location: "NY"},
	{Name: "BizSoft", Website: "https://bizsoft.com", Location: "CA"},
	{Name: "InnovateX", Website: "https://innovatex.com", Location: "TX"},
	{Name: "NextGen Solutions", Website: "https://nextgensolutions.com", Location: "WA"},
	{Name: "Alpha Systems", Website: "https://alphasystems.com", Location: "MA"},
	{Name: "BetaWorks", Website: "https://betaworks.com", Location: "FL"},
	{Name: "CloudNine", Website: "https://cloudnine.com", Location: "CO"},
	{Name: "DataForge", Website: "https://dataforge.com", Location: "IL"},
	{Name: "QuantumLeap", Website: "https://quantumleap.com", Location: "CA"},
	{Name: "Visionary Labs", Website: "https://visionarylabs.com", Location: "NY"},
}

// Run 写入共享种子数据，可重复执行（按名称跳过已存在的记录）。
func Run(db *gorm.DB, logger *slog.Logger) error {
	var boardCount int64
	if err := db.Model(&database.JobBoard{}).
		Where("user_id IS NULL").
		Count(&boardCount).Error; err != nil {
		return fmt.Errorf("count seed job boards: %w", err)
	}
	if boardCount == 0 {
		boards := make([]database.JobBoard, len(sharedJobBoards))
		copy(boards, sharedJobBoards)
		if err := db.Create(&boards).Error; err != nil {
			return fmt.Errorf("seed job boards: %w", err)
		}
		logger.Info("job boards seeded", slog.Int("count", len(boards)))
	}

	// 共享行 user_id 为 NULL，唯一索引对 NULL 不去重，必须显式按名查重。
	for _, company := range sharedCompanies {
		var existing database.Company
		err := db.Where("user_id IS NULL AND name = ?", company.Name).
			First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("check seed company %q: %w", company.Name, err)
		}
		if err := db.Create(&company).Error; err != nil {
			return fmt.Errorf("seed company %q: %w", company.Name, err)
		}
	}
	logger.Info("seed data ensured")

	return nil
}
