package matcher

import "context"

// Prediction is a classifier's best label and its confidence in [0,1].
type Prediction struct {
	Label      string
	Confidence float64
}

// Classifier is a trained intent classifier, consumed as an opaque capability.
type Classifier interface {
	Predict(ctx context.Context, text string) (Prediction, error)
}

type ClassifierFunc func(ctx context.Context, text string) (Prediction, error)

func (f ClassifierFunc) Predict(ctx context.Context, text string) (Prediction, error) {
	return f(ctx, text)
}

// OptionalClassifier is either a classifier or nothing.
type OptionalClassifier struct {
	c Classifier
}

// SomeClassifier wraps c. A nil c yields an absent classifier.
func SomeClassifier(c Classifier) OptionalClassifier {
	return OptionalClassifier{c: c}
}

func NoClassifier() OptionalClassifier {
	return OptionalClassifier{}
}

func (o OptionalClassifier) Get() (Classifier, bool) {
	return o.c, o.c != nil
}
