package seeder

import (
	"context"
	"log"

	"github.com/ossdoctor/contribution-service/internal/adapters/db"
	"github.com/ossdoctor/contribution-service/internal/core/domain/entities"
)

// levelLadder is the static experience ladder; required experience strictly
// increases with the level id.
var levelLadder = []entities.Level{
	{LevelID: 1, Title: "Newbie", RequiredExp: 0},
	{LevelID: 2, Title: "Explorer", RequiredExp: 100},
	{LevelID: 3, Title: "Advanced Contributor", RequiredExp: 300},
	{LevelID: 4, Title: "Developer", RequiredExp: 600},
	{LevelID: 5, Title: "Active Developer", RequiredExp: 1000},
	{LevelID: 6, Title: "Maintainer", RequiredExp: 1500},
	{LevelID: 7, Title: "Senior Maintainer", RequiredExp: 2100},
	{LevelID: 8, Title: "Senior Maintainer", RequiredExp: 2800},
	{LevelID: 9, Title: "OSS Leader", RequiredExp: 3600},
	{LevelID: 10, Title: "OSS Doctor", RequiredExp: 4500},
}

// SeedLevels seeds the level ladder if the table is empty
func SeedLevels(ctx context.Context, levels db.LevelStore) error {
	count, err := levels.CountLevels(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	log.Println("Seeding level ladder...")
	for i := range levelLadder {
		level := levelLadder[i]
		if err := levels.CreateLevel(ctx, &level); err != nil {
			return err
		}
	}
	return nil
}
