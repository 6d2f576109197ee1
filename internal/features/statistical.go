package features

import "gonum.org/v1/gonum/stat"

type statisticalFeatures struct {
	kurtosis, skewness float64
	bands              []float64
}

func computeStatistical(envelope []float64, spec spectrum) statisticalFeatures {
	return statisticalFeatures{
		kurtosis: stat.ExKurtosis(envelope, nil),
		skewness: stat.Skew(envelope, nil),
		bands:    bandFractions(spec),
	}
}
