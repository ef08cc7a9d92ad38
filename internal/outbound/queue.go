package outbound

// Queue 每块面板一个任务栈（后进先出），面板之间轮转调度
type Queue struct {
	stacks map[string][]*Job
	order  []string
	last   int
}

// NewQueue 创建空队列
func NewQueue() *Queue {
	return &Queue{stacks: make(map[string][]*Job), last: -1}
}

// Push 压入面板任务栈
func (q *Queue) Push(j *Job) {
	if _, ok := q.stacks[j.Panel]; !ok {
		q.order = append(q.order, j.Panel)
	}
	q.stacks[j.Panel] = append(q.stacks[j.Panel], j)
}

// Next 从上次服务面板的下一块开始，取第一个非空栈的栈顶（不出栈）
func (q *Queue) Next() *Job {
	n := len(q.order)
	for i := 1; i <= n; i++ {
		idx := (q.last + i) % n
		stack := q.stacks[q.order[idx]]
		if len(stack) == 0 {
			continue
		}
		q.last = idx
		return stack[len(stack)-1]
	}
	return nil
}

// Pop 任务结束后出栈
func (q *Queue) Pop(j *Job) bool {
	stack := q.stacks[j.Panel]
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i] == j {
			q.stacks[j.Panel] = append(stack[:i], stack[i+1:]...)
			return true
		}
	}
	return false
}

// Len 待执行任务总数（含当前任务）
func (q *Queue) Len() int {
	n := 0
	for _, s := range q.stacks {
		n += len(s)
	}
	return n
}

// Jobs 按面板轮转顺序列出各栈，栈顶在前
func (q *Queue) Jobs() []*Job {
	var out []*Job
	for _, p := range q.order {
		stack := q.stacks[p]
		for i := len(stack) - 1; i >= 0; i-- {
			out = append(out, stack[i])
		}
	}
	return out
}

// Drop 丢弃某面板尚未开始的任务，返回数量
func (q *Queue) Drop(panel string, keep *Job) int {
	stack := q.stacks[panel]
	kept := stack[:0]
	dropped := 0
	for _, j := range stack {
		if j == keep {
			kept = append(kept, j)
			continue
		}
		dropped++
	}
	q.stacks[panel] = kept
	return dropped
}
