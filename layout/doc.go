// Package layout 根据调试信息中的结构体布局重新排列成员, 减少浪费的空间.
//
// CU 持有类型表和其中定义的结构体. Reorganizer 原地修改 Class:
// 成员顺序, 偏移, 位域的存储类型和空洞统计都会改变, 成员本身不变.
// 同一个 Class 不能并发处理, 不同的 CU 之间没有共享状态.
package layout
