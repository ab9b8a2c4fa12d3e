package appstore

const (
	StateReadyForSale         = "READY_FOR_SALE"
	StatePrepareForSubmission = "PREPARE_FOR_SUBMISSION"

	typeLocalization = "appStoreVersionLocalizations"
	typeVersion      = "appStoreVersions"
)

// Links is the JSON:API pagination block.
type Links struct {
	Self string `json:"self,omitempty"`
	Next string `json:"next,omitempty"`
}

type listResponse[T any] struct {
	Data  []T   `json:"data"`
	Links Links `json:"links"`
}

type singleResponse[T any] struct {
	Data T `json:"data"`
}

type App struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	Attributes AppAttributes `json:"attributes"`
}

type AppAttributes struct {
	Name          string `json:"name"`
	BundleID      string `json:"bundleId"`
	SKU           string `json:"sku"`
	PrimaryLocale string `json:"primaryLocale"`
}

type Version struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Attributes VersionAttributes `json:"attributes"`
}

type VersionAttributes struct {
	Platform      string `json:"platform"`
	VersionString string `json:"versionString"`
	AppStoreState string `json:"appStoreState"`
}

type Localization struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Attributes LocalizationAttributes `json:"attributes"`
}

type LocalizationAttributes struct {
	Locale          string  `json:"locale"`
	Description     *string `json:"description"`
	Keywords        *string `json:"keywords"`
	PromotionalText *string `json:"promotionalText"`
	WhatsNew        *string `json:"whatsNew"`
}

// Fields returns the marketing text that gets copied between versions.
func (a LocalizationAttributes) Fields() LocalizationFields {
	return LocalizationFields{PromotionalText: a.PromotionalText, WhatsNew: a.WhatsNew}
}

// LocalizationFields are the attributes written to a target localization.
// Nil fields are left out of the request so the target keeps its value.
type LocalizationFields struct {
	PromotionalText *string `json:"promotionalText,omitempty"`
	WhatsNew        *string `json:"whatsNew,omitempty"`
}

func (f LocalizationFields) Empty() bool {
	return f.PromotionalText == nil && f.WhatsNew == nil
}

type updateRequest struct {
	Data updateData `json:"data"`
}

type updateData struct {
	Type       string             `json:"type"`
	ID         string             `json:"id"`
	Attributes LocalizationFields `json:"attributes"`
}

type createRequest struct {
	Data createData `json:"data"`
}

type createData struct {
	Type          string              `json:"type"`
	Attributes    createAttributes    `json:"attributes"`
	Relationships createRelationships `json:"relationships"`
}

type createAttributes struct {
	Locale string `json:"locale"`
	LocalizationFields
}

type createRelationships struct {
	AppStoreVersion relationship `json:"appStoreVersion"`
}

type relationship struct {
	Data resourceIdentifier `json:"data"`
}

type resourceIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// FindVersionByState returns the first version in API order whose
// appStoreState matches state.
func FindVersionByState(versions []Version, state string) (Version, bool) {
	for _, v := range versions {
		if v.Attributes.AppStoreState == state {
			return v, true
		}
	}
	return Version{}, false
}
