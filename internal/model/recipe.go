package model

// Recipe is one match returned by the recommendation engine.
type Recipe struct {
	Name         string `json:"name"`
	Ingredients  string `json:"ingredients"`
	Instructions string `json:"instructions"`
	URL          string `json:"url"`
}
