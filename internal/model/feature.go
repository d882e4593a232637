package model

// Feature names a gated AI operation.
type Feature string

const (
	FeatureArticle          Feature = "article"
	FeatureBlogTitle        Feature = "blog-title"
	FeatureImage            Feature = "image"
	FeatureRemoveBackground Feature = "remove-background"
	FeatureRemoveObject     Feature = "remove-object"
	FeatureResumeReview     Feature = "resume-review"
)

// AllFeatures lists every gated operation.
var AllFeatures = []Feature{
	FeatureArticle,
	FeatureBlogTitle,
	FeatureImage,
	FeatureRemoveBackground,
	FeatureRemoveObject,
	FeatureResumeReview,
}

// ParseFeature returns the feature for name and whether it is known.
func ParseFeature(name string) (Feature, bool) {
	for _, f := range AllFeatures {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}
