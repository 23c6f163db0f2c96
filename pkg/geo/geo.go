// Package geo 提供清算引擎与批次生成器共用的大圆几何计算
package geo

import "math"

// EarthRadiusKM 所有距离计算使用的固定地球半径。交易成本与配送半径
// 都按该值标定，不得换成 WGS84 半径。
const EarthRadiusKM = 6371.0

// Distance 返回两个经纬度坐标（度）之间的 haversine 大圆距离，单位公里
func Distance(lat1, long1, lat2, long2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLong := radians(long2 - long1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLong/2)*math.Sin(dLong/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKM * c
}

// ArcDegrees 把弧长（公里）换算成对应的圆心角（度），
// 批次生成器用它按指定距离摆放买卖双方
func ArcDegrees(arcKM float64) float64 {
	return arcKM / EarthRadiusKM * 180 / math.Pi
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
