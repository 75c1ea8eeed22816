package postgres

// Migrate runs gorm AutoMigrate for the provided models
func (p *Postgres) Migrate(models ...interface{}) error {
	db := p.DB()
	if db == nil {
		return ErrClosed
	}
	if err := db.AutoMigrate(models...); err != nil {
		return TranslateError(err)
	}
	p.logger.Info("Database migration completed", nil, map[string]interface{}{
		"models": len(models),
	})
	return nil
}
