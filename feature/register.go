package feature

import "github.com/kbukum/featflow/pipeline"

// Register binds every persistable built-in to reg under its kind.
func Register(reg *pipeline.Registry) {
	reg.RegisterTransformer(KindScale, func() pipeline.Transformer { return &Scale{} })
	reg.RegisterTransformer(KindStandardize, func() pipeline.Transformer { return &Standardize{} })
	reg.RegisterTransformer(KindSum, func() pipeline.Transformer { return &Sum{} })
	reg.RegisterTransformer(KindOneHot, func() pipeline.Transformer { return &OneHot{} })
	reg.RegisterMetric(KindMSE, func() pipeline.Metric { return &MSE{} })
	reg.RegisterMetric(KindAccuracy, func() pipeline.Metric { return &Accuracy{} })
}
