package linkedin

type textValue struct {
	Text string `json:"text"`
}

type shareMedia struct {
	Status      string    `json:"status"`
	Description textValue `json:"description"`
	Media       string    `json:"media"`
	Title       textValue `json:"title"`
}

type shareContent struct {
	ShareCommentary    textValue    `json:"shareCommentary"`
	ShareMediaCategory string       `json:"shareMediaCategory"`
	Media              []shareMedia `json:"media,omitempty"`
}

type ugcPost struct {
	Author          string                  `json:"author"`
	LifecycleState  string                  `json:"lifecycleState"`
	SpecificContent map[string]shareContent `json:"specificContent"`
	Visibility      map[string]string       `json:"visibility"`
}

// newShare builds a public, published share. A non-empty media list makes it an IMAGE share.
func newShare(personID, text string, media []shareMedia) ugcPost {
	category := "NONE"
	if len(media) > 0 {
		category = "IMAGE"
	}
	return ugcPost{
		Author:         personURN(personID),
		LifecycleState: "PUBLISHED",
		SpecificContent: map[string]shareContent{
			shareContentKey: {
				ShareCommentary:    textValue{Text: text},
				ShareMediaCategory: category,
				Media:              media,
			},
		},
		Visibility: map[string]string{visibilityKey: "PUBLIC"},
	}
}

type serviceRelationship struct {
	RelationshipType string `json:"relationshipType"`
	Identifier       string `json:"identifier"`
}

type registerUploadRequest struct {
	Request struct {
		Recipes              []string              `json:"recipes"`
		Owner                string                `json:"owner"`
		ServiceRelationships []serviceRelationship `json:"serviceRelationships"`
	} `json:"registerUploadRequest"`
}
