package models

import (
	"log"

	"bitbucket.org/tbphq/members_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Member{}, &User{},
		&Address{}, &PhoneNumber{},
		&ExpenseReportType{}, &ExpenseReport{}, &ExpenseReportDetail{},
		&OutboxMessageRecord{},
		&History{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
