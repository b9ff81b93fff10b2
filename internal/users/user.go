package users

// User is the slice of the account a recommendation needs: body
// measurements. Account management itself lives elsewhere.
type User struct {
	Seq      int     `json:"seq"`
	Nickname string  `json:"nickname"`
	HeightCm float64 `json:"heightCm"`
	WeightKg float64 `json:"weightKg"`
}
