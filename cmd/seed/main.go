package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tagreview/tagreview-backend/config"
	"github.com/tagreview/tagreview-backend/internal/app/model"
	"github.com/tagreview/tagreview-backend/internal/app/repository"
	"github.com/tagreview/tagreview-backend/internal/db"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// 시트 컬럼 순서
const (
	colName = iota
	colGoogleReviewURL
	colCouponType
	colDiscountType
	colDiscountValue
	colValidDays
	colNotificationEmail
	colLotteryPrize
	columnCount
)

func main() {
	// 명령줄 인자 확인
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	// 설정 로드
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	// DB 연결
	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	companyRepo := repository.NewCompanyRepository(db.GetDB())

	// XLSX 파일 읽기
	fmt.Printf("Reading XLSX file: %s\n", filePath)
	companies, err := readCompaniesFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total companies to import: %d\n", len(companies))

	// 사용자 확인
	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	created, updated, err := importCompanies(context.Background(), companyRepo, companies)
	if err != nil {
		log.Fatal("Failed to import companies:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("  Created: %d\n", created)
	fmt.Printf("  Updated: %d\n", updated)
}

func readCompaniesFromXLSX(filePath string) ([]model.Company, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	// 첫 번째 시트 이름 가져오기
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	var companies []model.Company
	seen := make(map[string]bool)
	skippedCount := 0

	// 첫 행은 헤더이므로 스킵
	for i, row := range rows {
		if i == 0 {
			continue
		}

		company, err := parseCompanyRow(row)
		if err != nil {
			fmt.Printf("  Row %d skipped: %v\n", i+1, err)
			skippedCount++
			continue
		}

		if seen[company.Name] {
			skippedCount++
			continue
		}
		seen[company.Name] = true

		companies = append(companies, *company)
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total rows: %d\n", len(rows)-1)
	fmt.Printf("  Valid companies: %d\n", len(companies))
	fmt.Printf("  Skipped rows: %d\n", skippedCount)

	return companies, nil
}

// parseCompanyRow 한 행을 매장 정보로 변환
func parseCompanyRow(row []string) (*model.Company, error) {
	cells := make([]string, columnCount)
	for i := 0; i < columnCount && i < len(row); i++ {
		cells[i] = strings.TrimSpace(row[i])
	}

	name := cells[colName]
	if name == "" {
		return nil, errors.New("name is empty")
	}

	couponType := model.RewardType(strings.ToLower(cells[colCouponType]))
	switch couponType {
	case "":
		couponType = model.RewardTypeNone
	case model.RewardTypeCoupon, model.RewardTypeLottery, model.RewardTypeNone:
	default:
		return nil, fmt.Errorf("unknown coupon type %q", cells[colCouponType])
	}

	discountType := model.DiscountType(strings.ToLower(cells[colDiscountType]))
	switch discountType {
	case "", model.DiscountTypePercent, model.DiscountTypeAmount, model.DiscountTypeFreebie:
	default:
		return nil, fmt.Errorf("unknown discount type %q", cells[colDiscountType])
	}

	var discountValue float64
	if cells[colDiscountValue] != "" {
		v, err := strconv.ParseFloat(cells[colDiscountValue], 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid discount value %q", cells[colDiscountValue])
		}
		discountValue = v
	}

	validDays := 30
	if cells[colValidDays] != "" {
		v, err := strconv.Atoi(cells[colValidDays])
		if err != nil || v <= 0 {
			return nil, fmt.Errorf("invalid valid days %q", cells[colValidDays])
		}
		validDays = v
	}

	if couponType == model.RewardTypeCoupon && discountType == "" {
		return nil, errors.New("coupon company needs a discount type")
	}

	email := cells[colNotificationEmail]
	return &model.Company{
		Name:              name,
		GoogleReviewURL:   cells[colGoogleReviewURL],
		CouponType:        couponType,
		DiscountType:      discountType,
		DiscountValue:     discountValue,
		CouponValidDays:   validDays,
		NotificationEmail: email,
		LotteryPrize:      cells[colLotteryPrize],
		NotifyThankYou:    true,
		NotifyCoupon:      couponType == model.RewardTypeCoupon,
		NotifyMerchant:    email != "",
	}, nil
}

// importCompanies 이름 기준 upsert. 기존 매장은 ID, 피드 토큰, 알림 설정을 유지한다.
func importCompanies(ctx context.Context, repo repository.CompanyRepository, companies []model.Company) (int, int, error) {
	created, updated := 0, 0

	for i := range companies {
		imported := &companies[i]

		existing, err := repo.FindByName(ctx, imported.Name)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			imported.FeedToken = uuid.NewString()
			if err := repo.Save(ctx, imported); err != nil {
				return created, updated, fmt.Errorf("create %s: %w", imported.Name, err)
			}
			fmt.Printf("  + %s (id=%s, feed_token=%s)\n", imported.Name, imported.ID, imported.FeedToken)
			created++
		case err != nil:
			return created, updated, fmt.Errorf("find %s: %w", imported.Name, err)
		default:
			existing.GoogleReviewURL = imported.GoogleReviewURL
			existing.CouponType = imported.CouponType
			existing.DiscountType = imported.DiscountType
			existing.DiscountValue = imported.DiscountValue
			existing.CouponValidDays = imported.CouponValidDays
			existing.NotificationEmail = imported.NotificationEmail
			existing.LotteryPrize = imported.LotteryPrize
			if err := repo.Save(ctx, existing); err != nil {
				return created, updated, fmt.Errorf("update %s: %w", imported.Name, err)
			}
			updated++
		}
	}

	return created, updated, nil
}
