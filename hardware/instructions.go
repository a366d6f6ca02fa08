package hardware

import (
	"math"

	"github.com/pthm-cable/deme/program"
)

// DefaultInstLib returns a new library holding the standard instruction set.
// Arguments name local memory registers unless stated otherwise.
func DefaultInstLib() *InstLib {
	l := NewInstLib()

	l.Add("Nop", func(*Processor, program.Instruction) {}, 0, "No operation")

	// Arithmetic
	l.Add("Inc", instInc, 1, "Local[A] = Local[A] + 1")
	l.Add("Dec", instDec, 1, "Local[A] = Local[A] - 1")
	l.Add("Not", instNot, 1, "Local[A] = !Local[A]")
	l.Add("Add", instAdd, 3, "Local[C] = Local[A] + Local[B]")
	l.Add("Sub", instSub, 3, "Local[C] = Local[A] - Local[B]")
	l.Add("Mult", instMult, 3, "Local[C] = Local[A] * Local[B]")
	l.Add("Div", instDiv, 3, "Local[C] = Local[A] / Local[B]")
	l.Add("Mod", instMod, 3, "Local[C] = Local[A] % Local[B]")

	// Comparison
	l.Add("TestEqu", instTestEqu, 3, "Local[C] = Local[A] == Local[B]")
	l.Add("TestNEqu", instTestNEqu, 3, "Local[C] = Local[A] != Local[B]")
	l.Add("TestLess", instTestLess, 3, "Local[C] = Local[A] < Local[B]")

	// Control flow
	l.Add("If", instIf, 1, "Execute block if Local[A] != 0", PropBlockDef)
	l.Add("While", instWhile, 1, "Repeat block while Local[A] != 0", PropBlockDef)
	l.Add("Countdown", instCountdown, 1, "Repeat block while Local[A] != 0, decrementing Local[A]", PropBlockDef)
	l.Add("Close", instClose, 0, "Close the innermost block", PropBlockClose)
	l.Add("Break", instBreak, 0, "Leave the innermost block")
	l.Add("Call", instCall, 0, "Call the function best bound to the affinity", PropAffinity)
	l.Add("Return", instReturn, 0, "Return from the current call")
	l.Add("Fork", instFork, 0, "Spawn a thread on the function best bound to the affinity", PropAffinity)
	l.Add("Terminate", instTerminate, 0, "Kill the current thread")

	// Memory
	l.Add("SetMem", instSetMem, 2, "Local[A] = B (literal)")
	l.Add("CopyMem", instCopyMem, 2, "Local[B] = Local[A]")
	l.Add("SwapMem", instSwapMem, 2, "Swap Local[A] and Local[B]")
	l.Add("Input", instInput, 2, "Local[B] = Input[A]")
	l.Add("Output", instOutput, 2, "Output[B] = Local[A]")
	l.Add("Commit", instCommit, 2, "Shared[B] = Local[A]")
	l.Add("Pull", instPull, 2, "Local[B] = Shared[A]")

	// Communication
	l.Add("BroadcastMsg", instBroadcastMsg, 0, "Send output memory to every neighbour", PropAffinity)
	l.Add("SendMsg", instSendMsg, 0, "Send output memory to one neighbour", PropAffinity)

	return l
}

func instInc(p *Processor, inst program.Instruction) {
	p.Local()[inst.Args[0]]++
}

func instDec(p *Processor, inst program.Instruction) {
	p.Local()[inst.Args[0]]--
}

func instNot(p *Processor, inst program.Instruction) {
	m := p.Local()
	m[inst.Args[0]] = boolVal(m[inst.Args[0]] == 0)
}

func instAdd(p *Processor, inst program.Instruction) {
	m := p.Local()
	m[inst.Args[2]] = m[inst.Args[0]] + m[inst.Args[1]]
}

func instSub(p *Processor, inst program.Instruction) {
	m := p.Local()
	m[inst.Args[2]] = m[inst.Args[0]] - m[inst.Args[1]]
}

func instMult(p *Processor, inst program.Instruction) {
	m := p.Local()
	m[inst.Args[2]] = m[inst.Args[0]] * m[inst.Args[1]]
}

// Division by zero is a no-op.
func instDiv(p *Processor, inst program.Instruction) {
	m := p.Local()
	den := m[inst.Args[1]]
	if den == 0 {
		return
	}
	m[inst.Args[2]] = m[inst.Args[0]] / den
}

// Mod is integer modulo with a non-negative result; modulo by zero is a no-op.
func instMod(p *Processor, inst program.Instruction) {
	m := p.Local()
	den := int64(m[inst.Args[1]])
	if den == 0 {
		return
	}
	num := int64(m[inst.Args[0]])
	r := num % den
	if r < 0 {
		if den < 0 {
			den = -den
		}
		r += den
	}
	m[inst.Args[2]] = float64(r)
}

func instTestEqu(p *Processor, inst program.Instruction) {
	m := p.Local()
	m[inst.Args[2]] = boolVal(m[inst.Args[0]] == m[inst.Args[1]])
}

func instTestNEqu(p *Processor, inst program.Instruction) {
	m := p.Local()
	m[inst.Args[2]] = boolVal(m[inst.Args[0]] != m[inst.Args[1]])
}

func instTestLess(p *Processor, inst program.Instruction) {
	m := p.Local()
	m[inst.Args[2]] = boolVal(m[inst.Args[0]] < m[inst.Args[1]])
}

func instIf(p *Processor, inst program.Instruction) {
	p.openBlock(blockIf, p.Local()[inst.Args[0]] != 0)
}

func instWhile(p *Processor, inst program.Instruction) {
	p.openBlock(blockLoop, p.Local()[inst.Args[0]] != 0)
}

func instCountdown(p *Processor, inst program.Instruction) {
	m := p.Local()
	enter := m[inst.Args[0]] != 0
	if enter {
		m[inst.Args[0]]--
	}
	p.openBlock(blockLoop, enter)
}

func instClose(p *Processor, _ program.Instruction) {
	st := p.state()
	if len(st.blocks) == 0 {
		return
	}
	b := st.blocks[len(st.blocks)-1]
	st.blocks = st.blocks[:len(st.blocks)-1]
	if b.kind == blockLoop {
		st.ip = b.begin
	}
}

func instBreak(p *Processor, _ program.Instruction) {
	st := p.state()
	if len(st.blocks) == 0 {
		return
	}
	b := st.blocks[len(st.blocks)-1]
	st.blocks = st.blocks[:len(st.blocks)-1]
	st.ip = b.end + 1
}

func instCall(p *Processor, inst program.Instruction) {
	t := p.cur
	if len(t.stack) >= p.cfg.MaxCallDepth {
		return
	}
	fn, ok := p.FindBinding(inst.Affinity)
	if !ok {
		return
	}
	t.stack = append(t.stack, newCallState(fn, p.Local()))
}

func instReturn(p *Processor, _ program.Instruction) {
	p.returnCall(p.cur)
}

func instFork(p *Processor, inst program.Instruction) {
	p.SpawnByAffinity(inst.Affinity, p.Local())
}

func instTerminate(p *Processor, _ program.Instruction) {
	p.cur.dead = true
}

func instSetMem(p *Processor, inst program.Instruction) {
	p.Local()[inst.Args[0]] = float64(inst.Args[1])
}

func instCopyMem(p *Processor, inst program.Instruction) {
	m := p.Local()
	m[inst.Args[1]] = m[inst.Args[0]]
}

func instSwapMem(p *Processor, inst program.Instruction) {
	m := p.Local()
	a, b := m[inst.Args[0]], m[inst.Args[1]]
	m[inst.Args[0]], m[inst.Args[1]] = b, a
}

func instInput(p *Processor, inst program.Instruction) {
	st := p.state()
	st.local[inst.Args[1]] = st.input[inst.Args[0]]
}

func instOutput(p *Processor, inst program.Instruction) {
	st := p.state()
	st.output[inst.Args[1]] = st.local[inst.Args[0]]
}

func instCommit(p *Processor, inst program.Instruction) {
	p.shared[inst.Args[1]] = p.Local()[inst.Args[0]]
}

func instPull(p *Processor, inst program.Instruction) {
	m := p.Local()
	m[inst.Args[1]] = p.shared[inst.Args[0]]
}

func instBroadcastMsg(p *Processor, inst program.Instruction) {
	p.sendMessage(inst.Affinity, PropBroadcast)
}

func instSendMsg(p *Processor, inst program.Instruction) {
	p.sendMessage(inst.Affinity, PropSend)
}

func (p *Processor) sendMessage(aff program.Affinity, prop string) {
	kind, ok := p.events.Kind(MessageEvent)
	if !ok {
		return
	}
	p.TriggerEvent(Event{
		Kind:       kind,
		Affinity:   aff,
		Msg:        p.state().output.Clone(),
		Properties: map[string]bool{prop: true},
	})
}

// openBlock pushes a block for the instruction just executed, or jumps past
// its matching close when the block is not entered.
func (p *Processor) openBlock(kind blockKind, enter bool) {
	st := p.state()
	begin := st.ip - 1
	end := p.blockEnd(st.fn, begin)
	if !enter {
		st.ip = end + 1
		return
	}
	st.blocks = append(st.blocks, block{kind: kind, begin: begin, end: end})
}

// blockEnd returns the index of the close matching the block opened at
// start, or the function length if the block is never closed.
func (p *Processor) blockEnd(fn, start int) int {
	insts := p.prog[fn].Instructions
	depth := 1
	for i := start + 1; i < len(insts); i++ {
		switch {
		case p.lib.HasProperty(insts[i].ID, PropBlockDef):
			depth++
		case p.lib.HasProperty(insts[i].ID, PropBlockClose):
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return len(insts)
}

func boolVal(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Truncate converts a register value to an integer, rounding toward zero and
// mapping NaN to 0.
func Truncate(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	return int(math.Trunc(v))
}
