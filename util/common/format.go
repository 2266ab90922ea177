package common

import (
	"fmt"
)

var sizeUnits = []string{"B", "KB", "MB"}

// HumanSize scales a byte amount by 1000 per unit up to MB and prints it
// with two decimals, e.g. 3000 -> "3.00 KB". Amounts past the last unit stay
// in MB.
func HumanSize(amount int64) string {
	unitIndex := 0
	size := float64(amount)

	for size >= 1000 && unitIndex < len(sizeUnits)-1 {
		size /= 1000
		unitIndex++
	}
	return fmt.Sprintf("%.2f %s", size, sizeUnits[unitIndex])
}
