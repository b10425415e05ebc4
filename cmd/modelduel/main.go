// Command modelduel 对同一输入调用两个（或多个）模型并比较结果。
//
//	modelduel serve --config modelduel.yaml
//	modelduel compare --text "absolutely loved it, five stars"
//	modelduel compare --values 1,0,3,1
//	modelduel batch --in reviews.csv --out predictions.csv
//	modelduel adapters --load
package main

func main() {
	Execute()
}
