package main

import (
	"log"
	"time"

	"courseledger/internal/database"
	"courseledger/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Seeds the local SQLite database with a few pending payments and ledger
// records for manual testing of the admin API and webhook flow.
func main() {
	db, err := database.Connect("courseledger.db")
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := db.AutoMigrate(
		&domain.StudentLedger{},
		&domain.PendingPayment{},
	); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM pending_payments")
	db.Exec("DELETE FROM student_ledgers")

	now := time.Now().UTC()

	pendings := []domain.PendingPayment{
		{
			ReferenceID: uuid.NewString(),
			Email:       "asha@example.com",
			Name:        "Asha Verma",
			Mobile:      "9876543210",
			CourseName:  "Agentic AI",
			Amount:      decimal.NewFromInt(2999),
			Currency:    "INR",
			Status:      domain.PendingStatusCreated,
		},
		{
			ReferenceID: uuid.NewString(),
			Email:       "rahul@example.com",
			Name:        "Rahul Nair",
			Mobile:      "9123456780",
			CourseName:  "Prompt Engineering Bootcamp",
			Amount:      decimal.NewFromInt(149),
			Currency:    "USD",
			Status:      domain.PendingStatusCreated,
		},
	}
	for i := range pendings {
		if err := db.Create(&pendings[i]).Error; err != nil {
			log.Fatal("seed pending payment failed:", err)
		}
	}

	ledger := domain.StudentLedger{
		Email:             "meera@example.com",
		Name:              "Meera Iyer",
		Mobile:            "9988776655",
		CurrentCourseName: "Agentic AI",
		EnrollmentDate:    now.AddDate(0, -2, 0),
		LastPaymentDate:   now.AddDate(0, -1, 0),
	}
	ledger.Slot1.Fill("pay_seed_001", decimal.NewFromInt(2999), now.AddDate(0, -2, 0))
	ledger.Slot2.Fill("pay_seed_002", decimal.NewFromInt(2999), now.AddDate(0, -1, 0))
	ledger.TotalAmountPaid = decimal.NewFromInt(5998)
	ledger.TotalPaymentsCount = 2
	if err := db.Create(&ledger).Error; err != nil {
		log.Fatal("seed ledger failed:", err)
	}

	log.Printf("Seeded %d pending payments and 1 ledger record", len(pendings))
}
