package Filters

// Pan-Tompkins 级联的各级长度与系数。系数在编译期固定，不支持运行时设计。
const (
	LowPassTaps     = 13
	LowPassFeedback = 3
	LowPassGain     = 1.0

	HighPassTaps     = 34
	HighPassFeedback = 2
	HighPassGain     = 1.0 / 32

	DerivativeTaps = 5
	DerivativeGain = 1.0 / 8

	IntegratorTaps = 32
	IntegratorGain = 1.0 / IntegratorTaps

	// OutputLen 积分输出缓冲的长度，阈值检测器需要 y[0] 与 y[2]
	OutputLen = 3
)

var (
	lowPassFF = [LowPassTaps]float64{1, 0, 0, 0, 0, 0, -2, 0, 0, 0, 0, 0, 1}
	lowPassFB = [LowPassFeedback]float64{1, -2, 1}

	highPassFF = [HighPassTaps]float64{
		0: -1, 16: 32, 17: -32, 33: 1,
	}
	highPassFB = [HighPassFeedback]float64{1, -1}

	derivativeFF = [DerivativeTaps]float64{2, 1, 0, -1, -2}

	integratorFF = func() (c [IntegratorTaps]float64) {
		for i := range c {
			c[i] = 1
		}
		return c
	}()
)

// LowPass 二阶递归低通，截止约 11Hz (fs=360Hz)
type LowPass struct {
	x [LowPassTaps]float64
	y [LowPassFeedback]float64
}

// Process 移位、写入新样本并返回当前输出
func (f *LowPass) Process(in float64) float64 {
	Push(f.x[:], in)
	ShiftRight(f.y[:])
	f.y[0] = EvaluateIIR(LowPassGain, f.x[:], lowPassFF[:], f.y[:], lowPassFB[:])
	return f.y[0]
}

// HighPass 全通减低通实现的高通，截止约 5Hz
type HighPass struct {
	x [HighPassTaps]float64
	y [HighPassFeedback]float64
}

func (f *HighPass) Process(in float64) float64 {
	Push(f.x[:], in)
	ShiftRight(f.y[:])
	f.y[0] = EvaluateIIR(HighPassGain, f.x[:], highPassFF[:], f.y[:], highPassFB[:])
	return f.y[0]
}

// Derivative 五点差分，强调 QRS 的陡峭斜率
type Derivative struct {
	x [DerivativeTaps]float64
}

func (f *Derivative) Process(in float64) float64 {
	Push(f.x[:], in)
	return EvaluateFIR(DerivativeGain, f.x[:], derivativeFF[:])
}

// Integrator 32 点滑动窗口积分 (约 89ms)
type Integrator struct {
	x [IntegratorTaps]float64
}

func (f *Integrator) Process(in float64) float64 {
	Push(f.x[:], in)
	return EvaluateFIR(IntegratorGain, f.x[:], integratorFF[:])
}

// Square 逐点平方，使所有斜率为正并放大大斜率
func Square(v float64) float64 {
	return v * v
}

// Output 积分器输出的最近三个值，[0] 最新
type Output [OutputLen]float64

// Push 移位并写入最新值
func (o *Output) Push(v float64) {
	Push(o[:], v)
}

// Stages 最近一次 Process 各级的输出，用于调试记录
type Stages struct {
	LowPass    float64
	HighPass   float64
	Derivative float64
	Squared    float64
	Integrated float64
}

// Cascade 五级 Pan-Tompkins 滤波：低通 -> 高通 -> 微分 -> 平方 -> 滑动积分。
// 所有延迟线都是定长数组，零值即初始状态，单次处理不分配内存。
type Cascade struct {
	lowPass    LowPass
	highPass   HighPass
	derivative Derivative
	integrator Integrator
	last       Stages
}

// Process 处理一个输入样本。积分结果写入 out[0] (out 先移位)，
// 返回高通输出 ("滤波后的 ECG")。
func (c *Cascade) Process(in float64, out *Output) float64 {
	s := &c.last
	s.LowPass = c.lowPass.Process(in)
	s.HighPass = c.highPass.Process(s.LowPass)
	s.Derivative = c.derivative.Process(s.HighPass)
	s.Squared = Square(s.Derivative)
	s.Integrated = c.integrator.Process(s.Squared)
	out.Push(s.Integrated)
	return s.HighPass
}

// Stages 返回最近一次各级输出
func (c *Cascade) Stages() Stages {
	return c.last
}

// Reset 所有延迟线清零
func (c *Cascade) Reset() {
	*c = Cascade{}
}
